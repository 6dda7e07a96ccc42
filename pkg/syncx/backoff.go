package syncx

import (
	"math/rand"
	"time"
)

// RetryPolicy controls how far into the future a failed job is rescheduled.
// Job-level retries operate on a minutes-to-hours scale, independent of the
// seconds-scale backoff inside the API client: by the time a rescheduled job
// runs, a degraded upstream has usually recovered.
type RetryPolicy struct {
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// Jitter adds up to this fraction of the delay, spreading retries of
	// jobs that failed together. Zero disables jitter.
	Jitter float64

	rand func(n int64) int64
}

// DefaultRetryPolicy retries after 5m, 10m, 20m, ... capped at 6h.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay: 5 * time.Minute,
		MaxDelay:  6 * time.Hour,
		Jitter:    0.25,
	}
}

// Delay returns the reschedule delay for the given retry count (1-based).
// The returned delay is always positive, so successive scheduled_for values
// of the same job are strictly increasing.
func (p RetryPolicy) Delay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}

	base := p.BaseDelay
	if base <= 0 {
		base = 5 * time.Minute
	}

	delay := base << uint(retryCount-1)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.Jitter > 0 {
		randFn := p.rand
		if randFn == nil {
			randFn = rand.Int63n
		}
		span := int64(float64(delay) * p.Jitter)
		if span > 0 {
			delay += time.Duration(randFn(span))
		}
	}

	return delay
}
