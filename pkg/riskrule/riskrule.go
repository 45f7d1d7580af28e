// Package riskrule holds pre-lock validation checks run by the matching
// engine before an order reaches the book. Grounded on the teacher's
// risk_rule package (LimitPriceRule/TickSizeRule), repurposed from
// FIX-style price-band/tick checks into the significant-digit and
// decimal-place limits spec.md §4.2 defers to configuration.
package riskrule

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lattice-markets/matchcore/pkg/money"
)

// Rule validates one field of an order request before submission.
type Rule interface {
	Check(label string, value decimal.Decimal) error
}

// DecimalShapeRule bounds significant digits and fractional digits, the
// "arbitrary price/quantity limits (max digits, max decimal places)" spec.md
// calls a configuration concern without specifying a mechanism.
type DecimalShapeRule struct {
	MaxSignificantDigits int
	MaxDecimalPlaces     int
}

// DefaultDecimalShapeRule matches spec.md §4.2's stated defaults.
func DefaultDecimalShapeRule() DecimalShapeRule {
	return DecimalShapeRule{MaxSignificantDigits: 16, MaxDecimalPlaces: 8}
}

func (r DecimalShapeRule) Check(label string, value decimal.Decimal) error {
	if money.SignificantDigits(value) > r.MaxSignificantDigits {
		return fmt.Errorf("%s exceeds %d significant digits", label, r.MaxSignificantDigits)
	}
	if money.DecimalPlaces(value) > r.MaxDecimalPlaces {
		return fmt.Errorf("%s exceeds %d decimal places", label, r.MaxDecimalPlaces)
	}
	return nil
}
