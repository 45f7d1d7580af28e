package persistence

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

// Writer periodically snapshots engine state to disk on a timer, retrying
// a failed write with exponential backoff before giving up for that tick.
// Grounded on the teacher's InitPostgresWithBackoff
// (pkg/infra/postgres/postgres.go), repurposed from connection setup to
// snapshot persistence — cenkalti/backoff's top-level Retry/
// NewExponentialBackOff API is unchanged, only what it wraps differs.
type Writer struct {
	Path     string
	Interval time.Duration
	Snapshot func() *Snapshot
	Log      *zap.Logger
}

// Run blocks, writing a snapshot every Interval until ctx is cancelled. The
// final write happens on cancellation so a graceful shutdown never loses
// the last few ticks of state.
func (w *Writer) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.writeOnce()
		case <-ctx.Done():
			w.writeOnce()
			return
		}
	}
}

func (w *Writer) writeOnce() {
	boff := backoff.NewExponentialBackOff()
	boff.MaxElapsedTime = 5 * time.Second
	err := backoff.Retry(func() error {
		return Save(w.Path, w.Snapshot())
	}, boff)
	if err != nil {
		w.Log.Warn("snapshot write failed after retries", zap.String("path", w.Path), zap.Error(err))
	}
}
