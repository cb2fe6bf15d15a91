package backoff

import (
	"context"
	"time"
)

// Retry calls try until it succeeds, attempts calls have been made or ctx is
// done. Between calls it waits s.Delay(n) and reports the failure to onRetry,
// which may be nil. It returns the last failure, or ctx.Err() when the context
// ended the wait.
func Retry(ctx context.Context, s Strategy, attempts int, try func(attempt int) error, onRetry func(attempt int, delay time.Duration, err error)) error {
	s.Reset()
	attempts = max(attempts, 1)

	var err error
	for attempt := range attempts {
		if err = try(attempt); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		delay := s.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt+1, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return err
}
