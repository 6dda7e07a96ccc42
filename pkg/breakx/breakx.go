// Package breakx implements a circuit breaker for calls against a flaky
// dependency. Consecutive failures within a rolling window trip the breaker
// open; while open every call is rejected without touching the dependency,
// giving it the cooldown to recover. After the cooldown a single trial call
// decides between closing again and re-opening.
package breakx

import (
	"context"
	"sync"
	"time"
)

// State is the breaker's current position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Executor is the breaker port consumed by clients.
type Executor interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

// Breaker tracks failures against one dependency.
type Breaker struct {
	mu sync.Mutex

	state       State
	failures    int
	windowStart time.Time
	openedAt    time.Time
	probeCount  int64
	probing     bool

	threshold int
	window    time.Duration
	cooldown  time.Duration
	now       func() time.Time
}

// NewBreaker creates a closed breaker that opens after threshold failures
// within window and stays open for cooldown.
func NewBreaker(options ...Option) *Breaker {
	b := &Breaker{
		state:     StateClosed,
		threshold: 5,
		window:    time.Minute,
		cooldown:  2 * time.Minute,
		now:       time.Now,
	}
	for _, o := range options {
		o(b)
	}
	return b
}

var _ Executor = (*Breaker)(nil)

// Execute runs fn through the breaker. While open it rejects immediately
// with ErrCircuitOpen; during half-open only one trial call is admitted.
// A nil error from fn counts as success, anything else as failure.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err == nil)
	return err
}

// admit decides whether the next call may proceed, transitioning
// open → half-open once the cooldown has elapsed.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return breakxErrors.New(ErrCircuitOpen).
				WithDetail("opened_at", b.openedAt).
				WithDetail("cooldown", b.cooldown.String())
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil

	case StateHalfOpen:
		if b.probing {
			return breakxErrors.New(ErrProbeBusy)
		}
		b.probing = true
		return nil
	}
	return nil
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probing = false
		b.probeCount++
		if success {
			b.state = StateClosed
			b.failures = 0
			return
		}
		b.state = StateOpen
		b.openedAt = b.now()
		return
	}

	if success {
		b.failures = 0
		return
	}

	now := b.now()
	if b.failures == 0 || now.Sub(b.windowStart) > b.window {
		b.windowStart = now
		b.failures = 0
	}
	b.failures++
	if b.failures >= b.threshold {
		b.state = StateOpen
		b.openedAt = now
		b.failures = 0
	}
}

// State returns the breaker's current state. Exposed for the stats endpoint.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Surface the pending open → half-open transition without waiting for
	// the next call to trigger it.
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}
