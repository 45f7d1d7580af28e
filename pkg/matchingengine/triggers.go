package matchingengine

import (
	"go.uber.org/zap"

	"github.com/lattice-markets/matchcore/pkg/orderbook"
)

// triggerConditionHolds reports whether o's stop/take-profit condition is
// satisfied by the book's current last-trade price or BBO. includeBBO is
// false for the placement-time check and true for post-trade evaluation:
// a resting stop that simply sits on the far side of the current BBO with
// no trade having printed yet stays parked, matching the book's state the
// moment it was submitted; only a trade print (which moves
// last_trade_price) or a subsequent evaluation pass considers BBO too.
// Must be called with st.mu held. Grounded on
// original_source/app/engine.py's process_triggers comparison logic.
func (e *Engine) triggerConditionHolds(st *symbolState, o *orderbook.Order, includeBBO bool) bool {
	last, hasLast := st.book.LastTradePrice()
	var bid, ask *orderbook.BBOLevel
	if includeBBO {
		bid, ask = st.book.BBO()
	}

	switch o.Type {
	case orderbook.Stop, orderbook.StopLimit:
		if o.Side == orderbook.Buy {
			return (hasLast && last.GreaterThanOrEqual(o.StopPrice)) || (ask != nil && ask.Price.GreaterThanOrEqual(o.StopPrice))
		}
		return (hasLast && last.LessThanOrEqual(o.StopPrice)) || (bid != nil && bid.Price.LessThanOrEqual(o.StopPrice))
	case orderbook.TakeProfit:
		if o.Side == orderbook.Sell {
			return (hasLast && last.GreaterThanOrEqual(o.TakeProfitPrice)) || (ask != nil && ask.Price.GreaterThanOrEqual(o.TakeProfitPrice))
		}
		return (hasLast && last.LessThanOrEqual(o.TakeProfitPrice)) || (bid != nil && bid.Price.LessThanOrEqual(o.TakeProfitPrice))
	}
	return false
}

// activateTrigger converts o into its live order type and runs it through
// the book exactly like a fresh submission, minus re-validation and minus a
// new order ID. Must be called with st.mu held.
func (e *Engine) activateTrigger(st *symbolState, o *orderbook.Order) {
	switch o.Type {
	case orderbook.Stop:
		// validate rejects a stop carrying a price, so this always resubmits
		// as a market order, per spec.md §4.2's trigger activation table.
		o.Type = orderbook.Market
	case orderbook.StopLimit:
		o.Type = orderbook.Limit
	case orderbook.TakeProfit:
		if o.HasPrice {
			o.Type = orderbook.Limit
		} else {
			o.Type = orderbook.Market
		}
	}

	fills := st.book.Match(o)
	trades := e.recordFills(st, o.Symbol, fills)

	if o.Remaining.IsPositive() {
		if o.Type == orderbook.Limit {
			_ = st.book.AddLimit(o)
			e.orderIdx.Store(o.OrderID, o.Symbol)
		} else {
			o.Status = orderbook.Cancelled
		}
	}

	if len(trades) > 0 {
		e.publishTrades(o.Symbol, trades)
	}
	e.log.Info("trigger activated", zap.String("order_id", o.OrderID), zap.String("symbol", o.Symbol), zap.String("type", string(o.Type)))
}

// evaluateTriggers re-checks symbol's parked trigger orders after a trade
// print, firing any whose condition now holds, and repeats until a pass
// activates nothing — a newly activated stop-limit resting on the book can
// itself print a trade that arms the next one. Takes the symbol lock itself
// and must NOT be called while st.mu is already held.
func (e *Engine) evaluateTriggers(symbol string) {
	st := e.stateFor(symbol)
	for {
		st.mu.Lock()
		var fired *orderbook.Order
		var firedIdx int
		for i, o := range st.triggers {
			if e.triggerConditionHolds(st, o, true) {
				fired = o
				firedIdx = i
				break
			}
		}
		if fired == nil {
			st.mu.Unlock()
			return
		}
		st.triggers = append(st.triggers[:firedIdx], st.triggers[firedIdx+1:]...)
		e.activateTrigger(st, fired)
		bids, asks := st.book.L2Snapshot(10)
		st.mu.Unlock()
		e.bus.PublishBookChanged(symbol, bids, asks)
	}
}
