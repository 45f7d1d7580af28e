// Package orderbook implements the per-symbol limit order book: sorted
// price ladders, per-level time-priority queues, an order index for O(log n)
// cancellation, BBO/L2 projection, and the price-time-priority matching
// loop. Grounded on the teacher's heap-and-deque order book, reshaped per
// spec.md §9 into a sorted-ladder-plus-linked-list structure.
package orderbook

import (
	"github.com/shopspring/decimal"
)

// indexEntry locates a resting order within its ladder.
type indexEntry struct {
	side  Side
	price decimal.Decimal
}

// Book is the order book for a single symbol.
type Book struct {
	Symbol         string
	bids           *ladder // descending
	asks           *ladder // ascending
	orderIndex     map[string]indexEntry
	lastTradePrice decimal.Decimal
	hasLastTrade   bool
}

// NewBook constructs an empty book for symbol.
func NewBook(symbol string) *Book {
	return &Book{
		Symbol:     symbol,
		bids:       newLadder(true),
		asks:       newLadder(false),
		orderIndex: make(map[string]indexEntry),
	}
}

func (b *Book) sideLadder(s Side) *ladder {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) contraLadder(s Side) *ladder {
	if s == Buy {
		return b.asks
	}
	return b.bids
}

// AddLimit inserts order at the tail of its price level. order.Remaining
// must be positive and order.HasPrice must be true.
func (b *Book) AddLimit(o *Order) error {
	if !o.HasPrice || o.Remaining.IsZero() {
		return ErrMissingPrice
	}
	lad := b.sideLadder(o.Side)
	lvl := lad.getOrCreate(o.Price)
	lvl.Append(o)
	b.orderIndex[o.OrderID] = indexEntry{side: o.Side, price: o.Price}
	return nil
}

// Cancel removes order_id from the book, wherever it rests.
func (b *Book) Cancel(orderID string) (*Order, error) {
	entry, ok := b.orderIndex[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	lad := b.sideLadder(entry.side)
	lvl := lad.get(entry.price)
	if lvl == nil {
		delete(b.orderIndex, orderID)
		return nil, ErrOrderNotFound
	}
	o := lvl.Remove(orderID)
	lad.removeIfEmpty(entry.price)
	delete(b.orderIndex, orderID)
	if o != nil {
		o.Status = Cancelled
	}
	return o, nil
}

// BestBid returns the top bid level, or nil.
func (b *Book) BestBid() *PriceLevel { return b.bids.best() }

// BestAsk returns the top ask level, or nil.
func (b *Book) BestAsk() *PriceLevel { return b.asks.best() }

// BBOLevel is a (price, aggregate quantity) pair for BBO/L2 reporting.
type BBOLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// BBO returns the best bid and ask, either of which may be absent.
func (b *Book) BBO() (bid, ask *BBOLevel) {
	if l := b.bids.best(); l != nil {
		bid = &BBOLevel{Price: l.Price, Quantity: l.TotalRemaining()}
	}
	if l := b.asks.best(); l != nil {
		ask = &BBOLevel{Price: l.Price, Quantity: l.TotalRemaining()}
	}
	return bid, ask
}

// LastTradePrice returns the most recent execution price, if any.
func (b *Book) LastTradePrice() (decimal.Decimal, bool) {
	return b.lastTradePrice, b.hasLastTrade
}

// SetLastTradePrice is used by recovery to restore the pre-shutdown value.
func (b *Book) SetLastTradePrice(p decimal.Decimal) {
	b.lastTradePrice = p
	b.hasLastTrade = true
}

// L2Snapshot returns the top depth levels of each side, best-to-worst,
// without leaking individual order identities.
func (b *Book) L2Snapshot(depth int) (bids, asks []BBOLevel) {
	for _, lvl := range b.bids.topN(depth) {
		bids = append(bids, BBOLevel{Price: lvl.Price, Quantity: lvl.TotalRemaining()})
	}
	for _, lvl := range b.asks.topN(depth) {
		asks = append(asks, BBOLevel{Price: lvl.Price, Quantity: lvl.TotalRemaining()})
	}
	return bids, asks
}

// Orders returns every resting order on side, best-price-first and FIFO
// within each level — the order persistence must walk to reproduce exact
// queue position on recovery.
func (b *Book) Orders(side Side) []*Order {
	var out []*Order
	for _, lvl := range b.sideLadder(side).levels {
		out = append(out, lvl.Orders()...)
	}
	return out
}

// Crossable reports whether an incoming order of side/priced-or-not can
// cross the book at all, per spec.md §4.1.
func (b *Book) Crossable(side Side, price decimal.Decimal, hasPrice bool) bool {
	contra := b.contraLadder(side)
	best := contra.best()
	if best == nil {
		return false
	}
	if !hasPrice {
		return true // market / stop-market: any contra liquidity crosses
	}
	if side == Buy {
		return best.Price.LessThanOrEqual(price)
	}
	return best.Price.GreaterThanOrEqual(price)
}

// TradeFill describes one match produced by Match, in maker/taker terms —
// the engine assigns trade IDs, fees, and timestamps from this.
type TradeFill struct {
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	MakerOrder *Order
	TakerOrder *Order
}

// Match sweeps the contra ladder against incoming until incoming is
// exhausted or the book is no longer crossable at incoming's limit (if any).
// Execution price is always the resting (maker) order's price — incoming's
// own price only bounds how deep the sweep may go and never becomes the
// trade price, preventing trade-throughs (P2).
func (b *Book) Match(incoming *Order) []TradeFill {
	var fills []TradeFill
	contra := b.contraLadder(incoming.Side)

	for incoming.Remaining.IsPositive() && b.Crossable(incoming.Side, incoming.Price, incoming.HasPrice) {
		lvl := contra.best()
		if lvl == nil {
			break
		}
		maker := lvl.Front()
		if maker == nil {
			// defensive: an empty level should already have been pruned
			contra.removeIfEmpty(lvl.Price)
			continue
		}

		qty := incoming.Remaining
		if maker.Remaining.LessThan(qty) {
			qty = maker.Remaining
		}

		execPrice := lvl.Price
		incoming.Remaining = incoming.Remaining.Sub(qty)
		incoming.Filled = incoming.Filled.Add(qty)
		if incoming.Remaining.IsPositive() {
			incoming.Status = PartiallyFilled
		} else {
			incoming.Status = Filled
		}

		makerBefore := *maker
		lvl.ReduceFront(qty)

		fills = append(fills, TradeFill{
			Price:      execPrice,
			Quantity:   qty,
			MakerOrder: &makerBefore,
			TakerOrder: incoming,
		})

		b.lastTradePrice = execPrice
		b.hasLastTrade = true

		if !makerBefore.Remaining.Sub(qty).IsPositive() {
			delete(b.orderIndex, makerBefore.OrderID)
			contra.removeIfEmpty(lvl.Price)
		}
	}
	return fills
}

// FOKPrecheck reports whether walking the contra ladder from best to worst,
// bounded by priceCap (unbounded when hasCap is false), accumulates at least qty of
// remaining liquidity. Read-only.
func (b *Book) FOKPrecheck(side Side, priceCap decimal.Decimal, hasCap bool, qty decimal.Decimal) bool {
	contra := b.contraLadder(side)
	need := qty
	for _, lvl := range contra.levels {
		if hasCap {
			if side == Buy && lvl.Price.GreaterThan(priceCap) {
				break
			}
			if side == Sell && lvl.Price.LessThan(priceCap) {
				break
			}
		}
		need = need.Sub(lvl.TotalRemaining())
		if !need.IsPositive() {
			return true
		}
	}
	return false
}
