package engine

import (
	"context"
	"errors"
	"time"
)

// retryConfig bounds store calls: each attempt runs under its own deadline,
// deadline overruns are retried with linear backoff, and the final failure
// surfaces as a PersistenceTimeoutError. Every other error passes through
// untouched on the first attempt.
type retryConfig struct {
	attempts int
	timeout  time.Duration
	backoff  time.Duration
}

func defaultRetry() retryConfig {
	return retryConfig{attempts: 3, timeout: 5 * time.Second, backoff: 100 * time.Millisecond}
}

func (c retryConfig) do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * c.backoff):
			case <-ctx.Done():
				return &PersistenceTimeoutError{Op: op, Err: ctx.Err()}
			}
		}

		opCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := fn(opCtx)
		cancel()

		if err == nil {
			return nil
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		lastErr = err
	}
	return &PersistenceTimeoutError{Op: op, Err: lastErr}
}
