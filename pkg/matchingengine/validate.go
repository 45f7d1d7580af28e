package matchingengine

import (
	"github.com/lattice-markets/matchcore/pkg/orderbook"
)

// validate runs req through the engine's configured rules before a symbol
// lock is ever taken, per spec.md §4.2's requirement that validation never
// happens while holding the per-symbol mutex.
func (e *Engine) validate(req OrderRequest) error {
	if req.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "required"}
	}
	if !req.Quantity.IsPositive() {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	switch req.Type {
	case orderbook.Limit:
		if !req.HasPrice {
			return &ValidationError{Field: "price", Reason: "required for " + string(req.Type)}
		}
	case orderbook.StopLimit:
		if !req.HasPrice {
			return &ValidationError{Field: "price", Reason: "required for " + string(req.Type)}
		}
		if !req.HasStopPrice {
			return &ValidationError{Field: "stop_price", Reason: "required for stop_limit"}
		}
	case orderbook.Stop:
		if !req.HasStopPrice {
			return &ValidationError{Field: "stop_price", Reason: "required for stop"}
		}
		if req.HasPrice {
			return &ValidationError{Field: "price", Reason: "must not be set for stop"}
		}
	case orderbook.TakeProfit:
		if !req.HasTakeProfitPrice {
			return &ValidationError{Field: "take_profit_price", Reason: "required for take_profit"}
		}
	case orderbook.Market:
		if req.HasPrice {
			return &ValidationError{Field: "price", Reason: "must not be set for market"}
		}
	case orderbook.IOC, orderbook.FOK:
		// price optional: IOC/FOK may carry a limit price as a slippage cap
	default:
		return &ValidationError{Field: "type", Reason: "unknown order type"}
	}

	if req.HasPrice {
		if err := e.shapeRule.Check("price", req.Price); err != nil {
			return &ValidationError{Field: "price", Reason: err.Error()}
		}
	}
	if err := e.shapeRule.Check("quantity", req.Quantity); err != nil {
		return &ValidationError{Field: "quantity", Reason: err.Error()}
	}
	if req.HasStopPrice {
		if err := e.shapeRule.Check("stop_price", req.StopPrice); err != nil {
			return &ValidationError{Field: "stop_price", Reason: err.Error()}
		}
	}
	if req.HasTakeProfitPrice {
		if err := e.shapeRule.Check("take_profit_price", req.TakeProfitPrice); err != nil {
			return &ValidationError{Field: "take_profit_price", Reason: err.Error()}
		}
	}
	return nil
}
