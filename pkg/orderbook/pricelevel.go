package orderbook

import (
	"container/list"

	"github.com/shopspring/decimal"
)

// PriceLevel is a FIFO queue of live orders resting at one price, plus a
// cached total_remaining. Matching consumes from the head; new orders
// append to the tail. A doubly-linked list with an order-id index gives
// O(1) cancel-by-id, the structure §9 of the spec recommends over an O(k)
// queue scan.
type PriceLevel struct {
	Price         decimal.Decimal
	queue         *list.List
	byOrderID     map[string]*list.Element
	totalRemaining decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:          price,
		queue:          list.New(),
		byOrderID:      make(map[string]*list.Element),
		totalRemaining: decimal.Zero,
	}
}

// TotalRemaining is the cached sum of order.Remaining across the level.
func (l *PriceLevel) TotalRemaining() decimal.Decimal {
	return l.totalRemaining
}

// Len reports the number of orders resting at this level.
func (l *PriceLevel) Len() int {
	return l.queue.Len()
}

// Append inserts order at the tail — the point of arrival for FIFO purposes.
func (l *PriceLevel) Append(o *Order) {
	el := l.queue.PushBack(o)
	l.byOrderID[o.OrderID] = el
	l.totalRemaining = l.totalRemaining.Add(o.Remaining)
}

// Front returns the order at the head of the queue, or nil if empty.
func (l *PriceLevel) Front() *Order {
	el := l.queue.Front()
	if el == nil {
		return nil
	}
	return el.Value.(*Order)
}

// ReduceFront applies a fill of qty to the order at the head, popping it if
// it becomes fully filled. Returns the (possibly now-removed) order.
func (l *PriceLevel) ReduceFront(qty decimal.Decimal) *Order {
	el := l.queue.Front()
	if el == nil {
		return nil
	}
	o := el.Value.(*Order)
	o.Remaining = o.Remaining.Sub(qty)
	o.Filled = o.Filled.Add(qty)
	l.totalRemaining = l.totalRemaining.Sub(qty)
	if !o.Remaining.IsPositive() {
		o.Status = Filled
		l.queue.Remove(el)
		delete(l.byOrderID, o.OrderID)
	} else {
		o.Status = PartiallyFilled
	}
	return o
}

// Remove removes order_id from the level by identity, returning it.
func (l *PriceLevel) Remove(orderID string) *Order {
	el, ok := l.byOrderID[orderID]
	if !ok {
		return nil
	}
	o := el.Value.(*Order)
	l.totalRemaining = l.totalRemaining.Sub(o.Remaining)
	l.queue.Remove(el)
	delete(l.byOrderID, orderID)
	return o
}

// Orders returns the level's orders in FIFO (insertion) order. Used only by
// the persistence writer, which needs to walk every resting order.
func (l *PriceLevel) Orders() []*Order {
	out := make([]*Order, 0, l.queue.Len())
	for el := l.queue.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Order))
	}
	return out
}
