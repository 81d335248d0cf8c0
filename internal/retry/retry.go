// Package retry provides the exponential-backoff loop shared by gas
// estimation and both swap executors. One combinator instead of three
// copies with slightly different constants.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy configures one retry loop.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// BaseDelay is the wait after the first failure; it doubles after
	// each subsequent failure (base, 2*base, 4*base, ...).
	BaseDelay time.Duration

	// Fatal reports errors that must not be retried (validation errors,
	// amounts below minimum). nil means everything is retryable.
	Fatal func(error) bool

	// Sleep is swapped for a recorder in tests. nil uses a ctx-aware wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs fn up to p.Attempts times. It returns fn's first success, or the
// last error wrapped with the attempt count once the budget is exhausted.
// Fatal errors abort immediately and are returned unwrapped.
func Do(ctx context.Context, p Policy, fn func(attempt int) error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	delay := p.BaseDelay
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		if p.Fatal != nil && p.Fatal(err) {
			return err
		}
		lastErr = err

		if attempt < p.Attempts {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.Attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
