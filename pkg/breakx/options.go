package breakx

import "time"

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many failures within the window trip the breaker.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithWindow sets the rolling window over which failures are counted.
func WithWindow(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.window = d
		}
	}
}

// WithCooldown sets how long the breaker stays open before admitting a trial call.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithClock overrides the breaker's time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		b.now = now
	}
}
