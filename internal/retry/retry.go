// Package retry provides the single retry-with-backoff combinator applied to
// every pipeline stage. Retry policy lives here and nowhere else; stage
// processors only classify errors.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy bounds the combinator.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Sleeper overrides how delays are waited out (tests).
	Sleeper func(time.Duration)
	// OnRetry observes each failed attempt before the backoff sleep.
	OnRetry func(attempt int, err error)
}

// Classifier reports whether an error is worth another attempt.
type Classifier func(error) bool

// Do invokes fn up to policy.MaxAttempts times, sleeping an exponentially
// increasing, capped delay between attempts. A non-retryable error (per the
// classifier) or context cancellation stops immediately. The last error is
// returned when attempts are exhausted.
func Do(ctx context.Context, policy Policy, retryable Classifier, fn func(ctx context.Context, attempt int) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) {
			return lastErr
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		if policy.OnRetry != nil {
			policy.OnRetry(attempt, lastErr)
		}
		if err := sleep(ctx, policy, Delay(policy, attempt)); err != nil {
			return err
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// Delay computes the backoff before the attempt following the given one:
// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, capped at
// MaxDelay.
func Delay(policy Policy, attempt int) time.Duration {
	base := policy.BaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = base
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func sleep(ctx context.Context, policy Policy, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if policy.Sleeper != nil {
		policy.Sleeper(delay)
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	if ctx == nil {
		<-timer.C
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
