package ratex_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/juricore/courtsync/pkg/errx"
	"github.com/juricore/courtsync/pkg/ratex"
)

// fakeClock advances only when the test says so.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAcquireWithinBurst(t *testing.T) {
	limiter := ratex.NewLimiter(1.0, 5, ratex.WithFailFast())

	for i := 0; i < 5; i++ {
		if err := limiter.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire %d within burst failed: %v", i, err)
		}
	}
}

func TestFailFastWhenExhausted(t *testing.T) {
	clock := newFakeClock()
	limiter := ratex.NewLimiter(1.0, 2, ratex.WithFailFast(), ratex.WithClock(clock.Now))

	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(context.Background()); err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
	}

	err := limiter.Acquire(context.Background())
	if err == nil {
		t.Fatal("expected rate limit error on empty bucket")
	}
	var e *errx.Error
	if !errx.As(err, &e) || e.Code != ratex.ErrRateLimited.Code {
		t.Fatalf("expected %s, got %v", ratex.ErrRateLimited.Code, err)
	}
}

func TestRefillOverTime(t *testing.T) {
	clock := newFakeClock()
	limiter := ratex.NewLimiter(2.0, 4, ratex.WithFailFast(), ratex.WithClock(clock.Now))

	for i := 0; i < 4; i++ {
		if err := limiter.Acquire(context.Background()); err != nil {
			t.Fatalf("drain acquire %d failed: %v", i, err)
		}
	}
	if err := limiter.Acquire(context.Background()); err == nil {
		t.Fatal("expected empty bucket to reject")
	}

	// 1s at 2 tokens/s refills 2 tokens.
	clock.Advance(time.Second)
	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(context.Background()); err != nil {
			t.Fatalf("post-refill acquire %d failed: %v", i, err)
		}
	}
	if err := limiter.Acquire(context.Background()); err == nil {
		t.Fatal("expected third post-refill acquire to reject")
	}
}

func TestRefillNeverExceedsCapacity(t *testing.T) {
	clock := newFakeClock()
	limiter := ratex.NewLimiter(10.0, 3, ratex.WithFailFast(), ratex.WithClock(clock.Now))

	clock.Advance(time.Hour)

	if got := limiter.Tokens(); got != 3 {
		t.Fatalf("expected bucket capped at 3 tokens, got %v", got)
	}
}

func TestBlockingAcquireWaits(t *testing.T) {
	clock := newFakeClock()
	var slept time.Duration
	limiter := ratex.NewLimiter(1.0, 1,
		ratex.WithClock(clock.Now),
		ratex.WithSleep(func(ctx context.Context, d time.Duration) error {
			slept += d
			clock.Advance(d)
			return nil
		}),
	)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("blocking acquire failed: %v", err)
	}
	if slept < time.Second {
		t.Fatalf("expected to wait at least 1s for refill, waited %s", slept)
	}
}

func TestAcquireCancelledWhileWaiting(t *testing.T) {
	clock := newFakeClock()
	limiter := ratex.NewLimiter(1.0, 1,
		ratex.WithClock(clock.Now),
		ratex.WithSleep(func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		}),
	)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	err := limiter.Acquire(context.Background())
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	var e *errx.Error
	if !errx.As(err, &e) || e.Code != ratex.ErrWaitCancelled.Code {
		t.Fatalf("expected %s, got %v", ratex.ErrWaitCancelled.Code, err)
	}
}

func TestCostLargerThanCapacity(t *testing.T) {
	limiter := ratex.NewLimiter(1.0, 2, ratex.WithFailFast())

	err := limiter.Acquire(context.Background(), 3)
	if err == nil {
		t.Fatal("expected invalid cost error")
	}
	var e *errx.Error
	if !errx.As(err, &e) || e.Code != ratex.ErrInvalidCost.Code {
		t.Fatalf("expected %s, got %v", ratex.ErrInvalidCost.Code, err)
	}
}

// Concurrent acquires must never hand out more tokens than the budget allows.
func TestConcurrentAcquireConservesTokens(t *testing.T) {
	limiter := ratex.NewLimiter(0.001, 10, ratex.WithFailFast())

	var granted int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(context.Background()); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted > 10 {
		t.Fatalf("granted %d acquisitions from a 10-token bucket", granted)
	}
}
