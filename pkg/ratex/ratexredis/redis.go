// Package ratexredis coordinates a single global rate budget across worker
// processes through a shared Redis counter over fixed time windows.
//
// Use it when COURTAPI_RATE_SHARED is enabled; otherwise each process runs
// its own ratex.Limiter over a divided budget.
package ratexredis

import (
	"context"
	"fmt"
	"time"

	"github.com/juricore/courtsync/pkg/ratex"
	"github.com/redis/go-redis/v9"
)

// incrWithExpire bumps the window counter and sets its TTL on first use.
// KEYS[1] = window key, ARGV[1] = cost, ARGV[2] = window TTL in ms.
var incrWithExpire = redis.NewScript(`
local count = redis.call('INCRBY', KEYS[1], ARGV[1])
if count == tonumber(ARGV[1]) then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return count
`)

// SharedLimiter implements ratex.Acquirer over a Redis-backed fixed window.
type SharedLimiter struct {
	rdb      *redis.Client
	resource string
	limit    int64
	window   time.Duration
	failFast bool
}

var _ ratex.Acquirer = (*SharedLimiter)(nil)

// New creates a shared limiter allowing limit acquisitions per window for
// the named resource across every process pointed at the same Redis.
func New(rdb *redis.Client, resource string, limit int64, window time.Duration, options ...Option) *SharedLimiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	l := &SharedLimiter{
		rdb:      rdb,
		resource: resource,
		limit:    limit,
		window:   window,
	}
	for _, o := range options {
		o(l)
	}
	return l
}

// Option configures a SharedLimiter.
type Option func(*SharedLimiter)

// WithFailFast makes Acquire error instead of waiting for the next window.
func WithFailFast() Option {
	return func(l *SharedLimiter) {
		l.failFast = true
	}
}

func (l *SharedLimiter) key(now time.Time) string {
	return fmt.Sprintf("ratex:%s:%d", l.resource, now.UnixNano()/int64(l.window))
}

// Acquire counts the caller against the current window, waiting for the next
// window when the shared budget is spent.
func (l *SharedLimiter) Acquire(ctx context.Context, cost ...int) error {
	c := int64(1)
	if len(cost) > 0 && cost[0] > 0 {
		c = int64(cost[0])
	}

	for {
		now := time.Now()
		count, err := incrWithExpire.Run(ctx, l.rdb, []string{l.key(now)}, c, l.window.Milliseconds()).Int64()
		if err != nil {
			return ratexErrors.NewWithCause(ErrRedis, err).WithDetail("resource", l.resource)
		}
		if count <= l.limit {
			return nil
		}

		// Over budget for this window. The increment stays counted; the key
		// expires with the window so the overshoot does not leak forward.
		wait := l.window - time.Duration(now.UnixNano()%int64(l.window))
		if l.failFast {
			return ratexErrors.New(ErrBudgetSpent).
				WithDetail("resource", l.resource).
				WithDetail("retry_in", wait.String())
		}

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ratexErrors.NewWithCause(ErrWaitCancelled, ctx.Err())
		}
	}
}

// Utilization reports the spent fraction of the current window's budget.
func (l *SharedLimiter) Utilization(ctx context.Context) float64 {
	count, err := l.rdb.Get(ctx, l.key(time.Now())).Int64()
	if err != nil {
		return 0
	}
	u := float64(count) / float64(l.limit)
	if u > 1 {
		u = 1
	}
	return u
}
