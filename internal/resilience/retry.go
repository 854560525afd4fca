package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls bounded retry with exponential backoff and jitter.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first try.
	// 1 means no retries. Default: 3.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Default: 500ms.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Default: 30s.
	MaxDelay time.Duration

	// Multiplier scales the delay after each attempt. Default: 2.0.
	Multiplier float64

	// Jitter randomizes each delay by ±Jitter fraction (0.25 = ±25%).
	// Default: 0.25.
	Jitter float64

	// ShouldRetry overrides the default Retryable check when set.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the attempt number
	// (1-based) and the error that triggered it.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy is the standard policy for scrape and provider calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.25,
	}
}

// Do runs fn under p, retrying retryable errors. Context cancellation stops
// retries immediately and returns the last error.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal runs fn under p and returns the value from the first successful
// attempt. A RateLimitError carrying a Retry-After hint overrides the
// computed backoff for that sleep.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = withDefaults(p)

	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = Retryable
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt >= p.MaxAttempts-1 {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, lastErr)
		}

		delay := backoff(attempt, p)
		var rl *RateLimitError
		if errors.As(lastErr, &rl) && rl.RetryAfter > 0 {
			delay = rl.RetryAfter
			if delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func withDefaults(p Policy) Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

func backoff(attempt int, p Policy) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter > 0 {
		span := delay * p.Jitter
		delay += (rand.Float64()*2 - 1) * span // ±span
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// LogRetries returns an OnRetry callback that logs each attempt for the
// given component and operation.
func LogRetries(component, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying",
			zap.String("component", component),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
