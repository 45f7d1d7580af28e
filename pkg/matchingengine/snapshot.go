package matchingengine

import (
	"github.com/gammazero/deque"
	"go.uber.org/zap"

	"github.com/lattice-markets/matchcore/pkg/orderbook"
	"github.com/lattice-markets/matchcore/pkg/persistence"
)

// Snapshot renders the engine's full state into a persistence.Snapshot.
// Safe to call concurrently with matching: each symbol is locked only long
// enough to copy its state out. Grounded on
// original_source/app/engine.py's save_state, which walks every price
// level's queue in FIFO order — book.Orders() here preserves that ordering
// via the ladder-and-linked-list structure.
func (e *Engine) Snapshot() *persistence.Snapshot {
	snap := persistence.NewSnapshot()
	e.symbols.Range(func(k, v any) bool {
		symbol := k.(string)
		st := v.(*symbolState)
		st.mu.Lock()
		rec := persistence.SymbolRecord{
			OpenOrders: append(toOrderRecords(st.book.Orders(orderbook.Buy)), toOrderRecords(st.book.Orders(orderbook.Sell))...),
			Triggers:   toOrderRecords(st.triggers),
		}
		if last, ok := st.book.LastTradePrice(); ok {
			rec.LastTradePrice = last
			rec.HasLastTrade = true
		}
		if st.recentTrades != nil {
			for i := 0; i < st.recentTrades.Len(); i++ {
				rec.RecentTrades = append(rec.RecentTrades, toTradeRecord(st.recentTrades.At(i)))
			}
		}
		st.mu.Unlock()
		snap.Symbols[symbol] = rec
		return true
	})
	return snap
}

// Recover rebuilds every symbol's book, trigger table, and recent-trade
// ring from snap. Call before accepting any Submit/Cancel traffic. A
// malformed individual order record is logged and skipped rather than
// aborting the whole recovery — a corrupt snapshot starts as empty as it
// can, never halts. Grounded on original_source/app/engine.py's load_state.
func (e *Engine) Recover(snap *persistence.Snapshot) {
	for symbol, rec := range snap.Symbols {
		st := e.stateFor(symbol)
		st.mu.Lock()
		for _, or := range rec.OpenOrders {
			o := fromOrderRecord(symbol, or)
			if err := st.book.AddLimit(o); err != nil {
				e.log.Error("dropping malformed order from snapshot", zap.String("order_id", o.OrderID), zap.String("symbol", symbol), zap.Error(&CorruptSnapshotError{Path: symbol, Err: err}))
				continue
			}
			e.orderIdx.Store(o.OrderID, symbol)
		}
		for _, or := range rec.Triggers {
			o := fromOrderRecord(symbol, or)
			o.Status = orderbook.PendingTrigger
			st.triggers = append(st.triggers, o)
			e.orderIdx.Store(o.OrderID, symbol)
		}
		if rec.HasLastTrade {
			st.book.SetLastTradePrice(rec.LastTradePrice)
		}
		for _, tr := range rec.RecentTrades {
			if st.recentTrades == nil {
				st.recentTrades = &deque.Deque[orderbook.Trade]{}
				st.recentTrades.Grow(e.cfg.RecentTradesLimit)
			}
			st.recentTrades.PushBack(fromTradeRecord(symbol, tr))
		}
		st.mu.Unlock()
	}
}

func toOrderRecords(orders []*orderbook.Order) []persistence.OrderRecord {
	out := make([]persistence.OrderRecord, 0, len(orders))
	for _, o := range orders {
		out = append(out, persistence.OrderRecord{
			OrderID:            o.OrderID,
			ClientOrderID:      o.ClientOrderID,
			Side:               string(o.Side),
			Type:               string(o.Type),
			Quantity:           o.Quantity,
			Remaining:          o.Remaining,
			Price:              o.Price,
			HasPrice:           o.HasPrice,
			StopPrice:          o.StopPrice,
			HasStopPrice:       o.HasStopPrice,
			TakeProfitPrice:    o.TakeProfitPrice,
			HasTakeProfitPrice: o.HasTakeProfit,
			Status:             string(o.Status),
			CreatedAt:          o.CreatedAt,
		})
	}
	return out
}

func fromOrderRecord(symbol string, or persistence.OrderRecord) *orderbook.Order {
	return &orderbook.Order{
		OrderID:         or.OrderID,
		ClientOrderID:   or.ClientOrderID,
		Symbol:          symbol,
		Side:            orderbook.Side(or.Side),
		Type:            orderbook.Type(or.Type),
		Quantity:        or.Quantity,
		Remaining:       or.Remaining,
		Filled:          or.Quantity.Sub(or.Remaining),
		Price:           or.Price,
		HasPrice:        or.HasPrice,
		StopPrice:       or.StopPrice,
		HasStopPrice:    or.HasStopPrice,
		TakeProfitPrice: or.TakeProfitPrice,
		HasTakeProfit:   or.HasTakeProfitPrice,
		Status:          orderbook.Status(or.Status),
		CreatedAt:       or.CreatedAt,
	}
}

func toTradeRecord(tr orderbook.Trade) persistence.TradeRecord {
	return persistence.TradeRecord{
		TradeID:       tr.TradeID,
		Price:         tr.Price,
		Quantity:      tr.Quantity,
		AggressorSide: string(tr.AggressorSide),
		MakerOrderID:  tr.MakerOrderID,
		TakerOrderID:  tr.TakerOrderID,
		Timestamp:     tr.Timestamp,
		MakerFee:      tr.MakerFee,
		TakerFee:      tr.TakerFee,
	}
}

func fromTradeRecord(symbol string, tr persistence.TradeRecord) orderbook.Trade {
	return orderbook.Trade{
		TradeID:       tr.TradeID,
		Symbol:        symbol,
		Price:         tr.Price,
		Quantity:      tr.Quantity,
		AggressorSide: orderbook.Side(tr.AggressorSide),
		MakerOrderID:  tr.MakerOrderID,
		TakerOrderID:  tr.TakerOrderID,
		Timestamp:     tr.Timestamp,
		MakerFee:      tr.MakerFee,
		TakerFee:      tr.TakerFee,
	}
}
