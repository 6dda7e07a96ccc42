package ratex

import (
	"context"
	"time"
)

// Option configures a Limiter.
type Option func(*Limiter)

// WithFailFast makes Acquire return ErrRateLimited instead of waiting when
// the bucket cannot cover the requested cost.
func WithFailFast() Option {
	return func(l *Limiter) {
		l.failFast = true
	}
}

// WithClock overrides the limiter's time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
		l.lastRefill = now()
	}
}

// WithSleep overrides the blocking wait. Used in tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		l.sleep = sleep
	}
}
