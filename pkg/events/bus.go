// Package events decouples the matching engine from any transport that
// wants to observe it. Grounded on spec.md §9's design note: "decouple the
// core from transports with a bounded per-subscriber queue; slow
// subscribers are dropped, not allowed to backpressure matching."
package events

import (
	"sync/atomic"

	"github.com/lattice-markets/matchcore/pkg/orderbook"
)

// TradeEvent is emitted once per trade, in trade order.
type TradeEvent struct {
	Symbol string
	Trade  orderbook.Trade
}

// BookChangedEvent is emitted after the trades it reflects, carrying the
// post-mutation L2 view — satisfying the ordering guarantee that every
// trade is followed, not preceded, by the book state reflecting it.
type BookChangedEvent struct {
	Symbol string
	Bids   []orderbook.BBOLevel
	Asks   []orderbook.BBOLevel
}

// Event is the sum type flowing through the bus.
type Event struct {
	Trade       *TradeEvent
	BookChanged *BookChangedEvent
}

// Subscriber receives events on a bounded channel. Publish never blocks on
// a slow subscriber: a full channel means the event is dropped for that
// subscriber (spec.md §7 SubscriberError) and matching proceeds regardless.
type Subscriber interface {
	// Deliver is called by the bus with a non-blocking best-effort send.
	// Implementations should not block; heavy work belongs on the other
	// end of their own channel/goroutine.
	Deliver(Event)
}

// ChannelSubscriber is a Subscriber backed by a bounded Go channel; a full
// channel drops the event and increments Dropped.
type ChannelSubscriber struct {
	C       chan Event
	Dropped uint64
}

// NewChannelSubscriber creates a subscriber with the given buffer size.
func NewChannelSubscriber(buffer int) *ChannelSubscriber {
	return &ChannelSubscriber{C: make(chan Event, buffer)}
}

func (s *ChannelSubscriber) Deliver(ev Event) {
	select {
	case s.C <- ev:
	default:
		atomic.AddUint64(&s.Dropped, 1)
	}
}

// Bus fans events out to registered subscribers.
type Bus struct {
	subs []Subscriber
}

// NewBus returns an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers sub to receive all future events.
func (b *Bus) Subscribe(sub Subscriber) {
	b.subs = append(b.subs, sub)
}

// PublishTrade emits a TradeEvent to every subscriber.
func (b *Bus) PublishTrade(symbol string, tr orderbook.Trade) {
	ev := Event{Trade: &TradeEvent{Symbol: symbol, Trade: tr}}
	for _, s := range b.subs {
		s.Deliver(ev)
	}
}

// PublishBookChanged emits a BookChangedEvent to every subscriber.
func (b *Bus) PublishBookChanged(symbol string, bids, asks []orderbook.BBOLevel) {
	ev := Event{BookChanged: &BookChangedEvent{Symbol: symbol, Bids: bids, Asks: asks}}
	for _, s := range b.subs {
		s.Deliver(ev)
	}
}
