// Package xid generates unique, monotonically increasing order and trade
// identifiers, grounded on original_source's next_id counter.
package xid

import (
	"fmt"
	"sync/atomic"
)

// Generator hands out prefix_n identifiers from a monotonic counter.
// Safe for concurrent use; the counter is process-local, which matches
// spec.md §5's guarantee that trade IDs are monotonic within a symbol —
// a single shared Generator per MatchingEngine is enough to satisfy it
// because every submit() path funnels through the same process.
type Generator struct {
	prefix  string
	counter uint64
}

// NewGenerator returns a Generator producing IDs like "ord_1", "ord_2", ...
func NewGenerator(prefix string) *Generator {
	return &Generator{prefix: prefix}
}

// Next returns the next identifier in sequence.
func (g *Generator) Next() string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s_%d", g.prefix, n)
}
