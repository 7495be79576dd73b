package agent

import (
	"context"
	"time"

	"github.com/taskpilot-dev/taskpilot/store"
)

// RunLimiter bounds how many runs a principal may start in a trailing
// window. It is a pure read over the run log; a rejected attempt leaves no
// row behind, so rejections never count against future windows.
type RunLimiter struct {
	store   store.Store
	maxRuns int
	window  time.Duration
}

// NewRunLimiter creates a limiter over the given store.
func NewRunLimiter(s store.Store, maxRuns int, window time.Duration) *RunLimiter {
	return &RunLimiter{store: s, maxRuns: maxRuns, window: window}
}

// Enforce returns ErrRateLimited when the principal has reached the ceiling.
// Must be called before any run row is created.
func (l *RunLimiter) Enforce(ctx context.Context, userID string) error {
	cutoff := time.Now().Add(-l.window)
	count, err := l.store.CountRunsSince(ctx, userID, cutoff)
	if err != nil {
		return err
	}
	if count >= l.maxRuns {
		return ErrRateLimited
	}
	return nil
}
