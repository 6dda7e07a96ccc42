package ratex

import (
	"context"
	"sync"
	"time"
)

// Acquirer is the gate every external call passes through before hitting the
// wire. Implementations must be safe for concurrent use.
type Acquirer interface {
	// Acquire blocks (or fails fast, depending on the limiter mode) until
	// cost tokens are available, then deducts them. Cost defaults to 1.
	Acquire(ctx context.Context, cost ...int) error
}

// Limiter is a token-bucket rate limiter. Tokens refill continuously at
// rate tokens/second up to capacity. State is process-local and resets on
// restart; the upstream provider re-synchronizes its own limits anyway.
type Limiter struct {
	mu         sync.Mutex
	capacity   float64
	rate       float64
	tokens     float64
	lastRefill time.Time
	failFast   bool
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewLimiter creates a limiter with the given refill rate (tokens/second)
// and burst capacity. The bucket starts full.
func NewLimiter(rate float64, capacity int, options ...Option) *Limiter {
	if rate <= 0 {
		rate = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	l := &Limiter{
		capacity: float64(capacity),
		rate:     rate,
		tokens:   float64(capacity),
		now:      time.Now,
		sleep:    sleepCtx,
	}
	l.lastRefill = l.now()
	for _, o := range options {
		o(l)
	}
	return l
}

// Acquire deducts cost tokens, waiting for refill when the limiter is in
// blocking mode. In fail-fast mode it returns ErrRateLimited immediately
// when the bucket cannot cover the cost.
func (l *Limiter) Acquire(ctx context.Context, cost ...int) error {
	c := 1
	if len(cost) > 0 && cost[0] > 0 {
		c = cost[0]
	}
	if float64(c) > l.capacity {
		return ratexErrors.New(ErrInvalidCost).
			WithDetail("cost", c).
			WithDetail("capacity", int(l.capacity))
	}

	for {
		wait, ok := l.tryTake(float64(c))
		if ok {
			return nil
		}
		if l.failFast {
			return ratexErrors.New(ErrRateLimited).
				WithDetail("cost", c).
				WithDetail("retry_in", wait.String())
		}
		if err := l.sleep(ctx, wait); err != nil {
			return ratexErrors.NewWithCause(ErrWaitCancelled, err)
		}
	}
}

// tryTake refills and attempts a single atomic deduction. When the bucket is
// short it returns the duration until cost tokens will be available.
func (l *Limiter) tryTake(cost float64) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillLocked()

	if l.tokens >= cost {
		l.tokens -= cost
		return 0, true
	}

	missing := cost - l.tokens
	return time.Duration(missing / l.rate * float64(time.Second)), false
}

func (l *Limiter) refillLocked() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens += elapsed * l.rate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	l.lastRefill = now
}

// Utilization reports the fraction of the bucket currently spent, in [0, 1].
// Exposed for the stats endpoint.
func (l *Limiter) Utilization() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked()
	return 1 - l.tokens/l.capacity
}

// Tokens returns the current token count (after refill).
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked()
	return l.tokens
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
