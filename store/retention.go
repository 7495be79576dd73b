package store

import (
	"context"
	"log/slog"
	"time"
)

// RetentionSweeper periodically deletes runs older than a maximum age.
// Actions and planner steps go with them via cascade.
type RetentionSweeper struct {
	store    Store
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewRetentionSweeper creates a sweeper over the given store.
func NewRetentionSweeper(s Store, maxAge, interval time.Duration, logger *slog.Logger) *RetentionSweeper {
	return &RetentionSweeper{store: s, maxAge: maxAge, interval: interval, logger: logger}
}

// Run sweeps on a ticker until the context is cancelled.
func (r *RetentionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *RetentionSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-r.maxAge)
	deleted, err := r.store.DeleteRunsBefore(sweepCtx, cutoff)
	if err != nil {
		r.logger.Warn("retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		r.logger.Info("retention sweep removed old runs", "deleted", deleted, "cutoff", cutoff)
	}
}
