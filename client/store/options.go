package store

import (
	"context"
	"net/http"
	"time"
)

// TokenProvider returns the bearer token for a request. An empty token
// means no credential is available.
type TokenProvider func(ctx context.Context) (string, error)

// Option customizes the client.
type Option func(c *Client)

// RetryPolicy controls request retry behavior.
type RetryPolicy struct {
	MaxAttempts   int
	Delay         time.Duration
	RetryStatuses map[int]struct{}
	RetryMethods  map[string]struct{}
	RetryOnError  bool
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.http == nil {
			c.http = &http.Client{}
		}
		c.http.Timeout = d
	}
}

// WithTokenProvider supplies the bearer token provider.
func WithTokenProvider(tp TokenProvider) Option {
	return func(c *Client) {
		c.tokenProvider = tp
	}
}

// WithRetryPolicy sets a retry policy for requests.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithHeader sets a static header on all requests.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = map[string]string{}
		}
		c.headers[key] = value
	}
}
