package courtapi

import (
	"context"
	"net/http"
	"time"

	"github.com/juricore/courtsync/pkg/breakx"
	"github.com/juricore/courtsync/pkg/ratex"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// WithLimiter sets the rate limiter gating every request.
func WithLimiter(limiter ratex.Acquirer) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithBreaker sets the circuit breaker wrapping every request.
func WithBreaker(breaker breakx.Executor) ClientOption {
	return func(c *Client) {
		c.breaker = breaker
	}
}

// WithMaxAttempts sets how many times one logical call is attempted.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the base and cap of the exponential retry delay.
func WithBackoff(base, max time.Duration) ClientOption {
	return func(c *Client) {
		if base > 0 {
			c.baseDelay = base
		}
		if max > 0 {
			c.maxDelay = max
		}
	}
}

// WithSleep overrides the backoff wait. Used in tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithJitter overrides the delay jitter. Used in tests.
func WithJitter(jitter func(d time.Duration) time.Duration) ClientOption {
	return func(c *Client) {
		c.jitter = jitter
	}
}
