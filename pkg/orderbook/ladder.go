package orderbook

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ladder is a sorted-slice price index for one side of the book: bids kept
// descending, asks kept ascending, so index 0 is always the best price.
// This is the "two parallel arrays kept sorted, binary search for insert"
// alternative spec.md §9 names — acceptable up to a few hundred active
// levels, which any real symbol's resting-price count stays well under.
type ladder struct {
	descending bool
	levels     []*PriceLevel
}

func newLadder(descending bool) *ladder {
	return &ladder{descending: descending}
}

// less reports whether price a should sort before price b for this ladder's
// direction.
func (l *ladder) less(a, b decimal.Decimal) bool {
	if l.descending {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

// find returns the index of price's level and whether it exists.
func (l *ladder) find(price decimal.Decimal) (int, bool) {
	i := sort.Search(len(l.levels), func(i int) bool {
		return !l.less(l.levels[i].Price, price)
	})
	if i < len(l.levels) && l.levels[i].Price.Equal(price) {
		return i, true
	}
	return i, false
}

// getOrCreate returns the level at price, creating and inserting it in
// sorted position if absent.
func (l *ladder) getOrCreate(price decimal.Decimal) *PriceLevel {
	i, ok := l.find(price)
	if ok {
		return l.levels[i]
	}
	lvl := newPriceLevel(price)
	l.levels = append(l.levels, nil)
	copy(l.levels[i+1:], l.levels[i:])
	l.levels[i] = lvl
	return lvl
}

// get returns the level at price, or nil.
func (l *ladder) get(price decimal.Decimal) *PriceLevel {
	i, ok := l.find(price)
	if !ok {
		return nil
	}
	return l.levels[i]
}

// removeIfEmpty drops price's level from the ladder iff it has no orders
// left, satisfying the book invariant that no empty PriceLevels exist.
func (l *ladder) removeIfEmpty(price decimal.Decimal) {
	i, ok := l.find(price)
	if !ok || l.levels[i].Len() > 0 {
		return
	}
	l.levels = append(l.levels[:i], l.levels[i+1:]...)
}

// best returns the best (first) level, or nil if the ladder is empty.
func (l *ladder) best() *PriceLevel {
	if len(l.levels) == 0 {
		return nil
	}
	return l.levels[0]
}

// topN returns up to n levels in best-to-worst order.
func (l *ladder) topN(n int) []*PriceLevel {
	if n > len(l.levels) {
		n = len(l.levels)
	}
	return l.levels[:n]
}
