package executor

import (
	"context"
	"time"
)

// withRetry calls fn until it succeeds, fails with a non-retriable error, or
// maxRetries retries are spent. maxRetries of zero means unlimited. The delay
// doubles after every attempt up to maxDelay. onRetry, when set, runs before
// each wait.
func withRetry(ctx context.Context, maxRetries int, baseDelay, maxDelay time.Duration, fn func(context.Context) error, onRetry func(attempt int, err error)) error {
	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !isRetriable(err) {
			return err
		}
		if maxRetries > 0 && attempt >= maxRetries {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
