// Package courtapi is the gated client for the third-party judicial-records
// API. Every request passes through the circuit breaker and the rate limiter
// before touching the wire, and transient failures are retried with capped
// exponential backoff. The client performs network I/O only; it never writes
// to domain storage.
package courtapi

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/juricore/courtsync/pkg/breakx"
	"github.com/juricore/courtsync/pkg/errx"
	"github.com/juricore/courtsync/pkg/logx"
	"github.com/juricore/courtsync/pkg/ratex"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = time.Minute
)

// Client talks to the court records API.
type Client struct {
	baseURL     string
	authToken   string
	httpClient  *http.Client
	limiter     ratex.Acquirer
	breaker     breakx.Executor
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	jitter      func(d time.Duration) time.Duration
}

// NewClient creates a client. Limiter and breaker default to a 1 req/s
// process-local bucket and a 5-failure breaker when not provided.
func NewClient(baseURL, authToken string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		authToken:   authToken,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		sleep:       sleepCtx,
		jitter:      fullJitter,
	}
	for _, o := range options {
		o(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.limiter == nil {
		c.limiter = ratex.NewLimiter(1, 5)
	}
	if c.breaker == nil {
		c.breaker = breakx.NewBreaker()
	}
	return c
}

// get performs one logical GET with retry, backoff, limiter and breaker.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt, lastErr)
			logx.WithFields(logx.Fields{
				"path":    path,
				"attempt": attempt,
				"delay":   delay.String(),
			}).Debug("courtapi: retrying request")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, errx.Wrap(err, "request cancelled during backoff", errx.TypeUnavailable)
			}
		}

		var body []byte
		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			if err := c.limiter.Acquire(ctx); err != nil {
				return err
			}
			var reqErr error
			body, reqErr = c.doRequest(ctx, path, query)
			return reqErr
		})
		if err == nil {
			return body, nil
		}

		lastErr = err

		// An open breaker means the dependency is degraded; surface it
		// immediately so the job-level retry takes over at its own pace.
		if breakx.IsCircuitOpen(err) {
			return nil, err
		}
		if !IsTransient(err) {
			return nil, err
		}
	}

	return nil, apiErrors.NewWithCause(ErrAttemptsExhausted, lastErr).
		WithDetail("path", path).
		WithDetail("attempts", c.maxAttempts)
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apiErrors.NewWithCause(ErrAPIRequest, err).WithDetail("url", u)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "courtsync/1.0")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Token "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection resets land here and count as transient.
		return nil, apiErrors.NewWithCause(ErrAPIRequest, err).WithDetail("url", u)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apiErrors.NewWithCause(ErrAPIResponse, err).WithDetail("url", u)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ParseAPIError(resp.StatusCode, body, resp.Header.Get("Retry-After"))
	}

	return body, nil
}

// retryDelay computes the exponential backoff for attempt, honoring a
// server-supplied Retry-After when it is longer than the computed delay.
func (c *Client) retryDelay(attempt int, lastErr error) time.Duration {
	delay := c.baseDelay << uint(attempt-1)
	if delay > c.maxDelay {
		delay = c.maxDelay
	}
	delay = c.jitter(delay)

	if ra := retryAfterHint(lastErr); ra > delay {
		delay = ra
	}
	return delay
}

// retryAfterHint extracts the Retry-After duration recorded on a 429 error.
func retryAfterHint(err error) time.Duration {
	var e *errx.Error
	if !errx.As(err, &e) {
		return 0
	}
	raw, ok := e.Details["retry_after"].(string)
	if !ok || raw == "" {
		return 0
	}
	if secs, convErr := strconv.Atoi(raw); convErr == nil {
		return time.Duration(secs) * time.Second
	}
	if at, parseErr := http.ParseTime(raw); parseErr == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// fullJitter spreads a delay uniformly over (d/2, d] to avoid synchronized
// retries across workers.
func fullJitter(d time.Duration) time.Duration {
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
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

// BreakerState exposes the breaker position for the stats endpoint, when the
// configured breaker is a *breakx.Breaker.
func (c *Client) BreakerState() breakx.State {
	if b, ok := c.breaker.(*breakx.Breaker); ok {
		return b.State()
	}
	return ""
}

// LimiterUtilization exposes the limiter's spent fraction for the stats
// endpoint. The local bucket reports from in-process state; shared limiters
// need the context to read their window counter.
func (c *Client) LimiterUtilization(ctx context.Context) float64 {
	switch l := c.limiter.(type) {
	case interface{ Utilization() float64 }:
		return l.Utilization()
	case interface {
		Utilization(ctx context.Context) float64
	}:
		return l.Utilization(ctx)
	}
	return 0
}

func itoa(n int64) string { return fmt.Sprintf("%d", n) }
