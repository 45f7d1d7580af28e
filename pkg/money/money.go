// Package money provides the fixed-precision decimal helpers shared by the
// order book, matching engine, and persistence layer. No float64 value ever
// represents a price, quantity, or fee in this module.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Zero is the canonical zero value, exported so callers don't re-derive it.
var Zero = decimal.Zero

// Parse converts a decimal string into a Decimal, rejecting empty input.
func Parse(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("money: empty decimal string")
	}
	return decimal.NewFromString(s)
}

// Canonical renders d as a canonical decimal string: no scientific notation,
// no sign on zero. shopspring/decimal.String never uses scientific notation,
// so this is a thin, named seam in case that ever needs to change.
func Canonical(d decimal.Decimal) string {
	return d.String()
}

// QuantizeHalfEven rounds d to places fractional digits using round-half-to-even,
// the fee-rounding mode spec.md leaves as an implementation choice (§9).
func QuantizeHalfEven(d decimal.Decimal, places int32) decimal.Decimal {
	return d.RoundBank(places)
}

// SignificantDigits returns the number of significant (non-leading-zero)
// decimal digits in d's unscaled value — used by riskrule's tick-size style
// validation.
func SignificantDigits(d decimal.Decimal) int {
	coeff := d.Coefficient()
	s := coeff.Abs(coeff).String()
	if s == "0" {
		return 1
	}
	return len(s)
}

// DecimalPlaces returns the number of fractional digits d is expressed with.
func DecimalPlaces(d decimal.Decimal) int {
	exp := d.Exponent()
	if exp >= 0 {
		return 0
	}
	return int(-exp)
}

// Notional returns price * quantity, the basis for fee computation.
func Notional(price, quantity decimal.Decimal) decimal.Decimal {
	return price.Mul(quantity)
}

// BpsOf returns notional * bps / 10000, signed (a negative bps is a rebate).
func BpsOf(notional, bps decimal.Decimal) decimal.Decimal {
	return notional.Mul(bps).Div(decimal.NewFromInt(10000))
}
