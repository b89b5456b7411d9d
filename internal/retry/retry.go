// Package retry provides a generic bounded-attempt executor with exponential
// backoff and jitter. It is shared by the provider clients and the durable
// cache tier, and knows nothing about what it wraps beyond a log label.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

const (
	// DefaultMaxAttempts bounds the total attempts, first call included.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay seeds the exponential backoff.
	DefaultBaseDelay = 1 * time.Second
)

// jitter spreads retry delays over [1-jitterSpread/2, 1+jitterSpread/2).
const jitterSpread = 0.30

// retryable is the capability an error advertises to request another attempt.
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err carries the retryable capability and it is
// set. Errors without the capability never retry.
func IsRetryable(err error) bool {
	var r retryable
	return errors.As(err, &r) && r.Retryable()
}

type options struct {
	maxAttempts int
	baseDelay   time.Duration
	log         *slog.Logger
	sleep       func(context.Context, time.Duration) error
}

// Option configures a Do call.
type Option func(*options)

// WithMaxAttempts overrides the attempt budget.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithBaseDelay overrides the backoff base.
func WithBaseDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.baseDelay = d
		}
	}
}

// WithLogger sets the logger used for attempt warnings.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// withSleep replaces the backoff sleep, for tests.
func withSleep(fn func(context.Context, time.Duration) error) Option {
	return func(o *options) { o.sleep = fn }
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. Between attempts it sleeps base * 2^(attempt-1) scaled by
// uniform jitter in [0.85, 1.15); the sleep aborts on context cancellation.
// The label only appears in logs.
func Do[T any](ctx context.Context, label string, fn func(context.Context) (T, error), opts ...Option) (T, error) {
	o := options{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		log:         slog.Default(),
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	var lastErr error

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := o.sleep(ctx, backoffDelay(o.baseDelay, attempt-1)); err != nil {
				return zero, err
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		if attempt < o.maxAttempts {
			o.log.Warn("retrying operation",
				"label", label,
				"attempt", attempt,
				"error", err)
		}
	}

	return zero, lastErr
}

// backoffDelay computes the jittered exponential delay before the given
// retry (retry 1 follows attempt 1).
func backoffDelay(base time.Duration, retry int) time.Duration {
	factor := math.Pow(2, float64(retry-1))
	jitter := 1 - jitterSpread/2 + rand.Float64()*jitterSpread
	return time.Duration(float64(base) * factor * jitter)
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
