package agent

import (
	"context"
	"time"
)

type toolResult struct {
	value any
	err   error
}

// callWithTimeout races fn against a wall-clock bound. When the timer wins
// the call is abandoned, not cancelled beyond its context: side effects the
// tool already committed are not rolled back. Task creation is the run's
// terminal step, so the audit log still shows what was attempted.
func callWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) (any, error)) (any, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan toolResult, 1)
	go func() {
		value, err := fn(callCtx)
		ch <- toolResult{value: value, err: err}
	}()

	select {
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrToolTimeout
	case r := <-ch:
		return r.value, r.err
	}
}
