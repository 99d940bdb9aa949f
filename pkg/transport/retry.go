// Package transport holds decorators that apply to any portal.Client.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/morezero/ckan-portal/pkg/portal"
)

const logPrefix = "transport:retry"

// StatusCoder is implemented by responses that expose an HTTP status.
type StatusCoder interface {
	Status() int
}

// RetryOption configures Retrying.
type RetryOption func(*retryConfig)

type retryConfig struct {
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsed      time.Duration
	retryable       func(int) bool
}

// WithMaxRetries sets how many times a failed request is retried. 0 disables retries.
func WithMaxRetries(n int) RetryOption {
	return func(c *retryConfig) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = uint64(n)
	}
}

// WithInitialInterval sets the first backoff delay.
func WithInitialInterval(d time.Duration) RetryOption {
	return func(c *retryConfig) {
		c.initialInterval = d
	}
}

// WithMaxInterval caps a single backoff delay.
func WithMaxInterval(d time.Duration) RetryOption {
	return func(c *retryConfig) {
		c.maxInterval = d
	}
}

// WithRetryableStatus overrides which HTTP statuses are retried.
func WithRetryableStatus(fn func(status int) bool) RetryOption {
	return func(c *retryConfig) {
		c.retryable = fn
	}
}

// DefaultRetryableStatus retries gateway failures.
func DefaultRetryableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Retrying wraps inner so transport failures and retryable statuses are
// retried with exponential backoff. Responses that reach the server and carry
// a CKAN envelope are never retried. The last response is returned once
// retries are exhausted.
func Retrying(inner portal.Client, opts ...RetryOption) portal.Client {
	cfg := &retryConfig{
		maxRetries:      3,
		initialInterval: 500 * time.Millisecond,
		maxInterval:     10 * time.Second,
		maxElapsed:      time.Minute,
		retryable:       DefaultRetryableStatus,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return portal.ClientFunc(func(ctx context.Context, url string, params *portal.RequestParams) (portal.Response, error) {
		if cfg.maxRetries == 0 {
			return inner.Request(ctx, url, params)
		}

		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = cfg.initialInterval
		eb.MaxInterval = cfg.maxInterval
		eb.MaxElapsedTime = cfg.maxElapsed
		b := backoff.WithContext(backoff.WithMaxRetries(eb, cfg.maxRetries), ctx)

		var last portal.Response
		op := func() error {
			resp, err := inner.Request(ctx, url, params)
			if err != nil {
				if ctx.Err() != nil {
					return backoff.Permanent(err)
				}
				return err
			}
			last = resp
			if sc, ok := resp.(StatusCoder); ok && cfg.retryable(sc.Status()) {
				return &statusError{status: sc.Status()}
			}
			return nil
		}

		notify := func(err error, wait time.Duration) {
			slog.Warn(fmt.Sprintf("%s - %s failed, retrying in %s: %v", logPrefix, url, wait, err))
		}

		err := backoff.RetryNotify(op, b, notify)
		if err != nil {
			if _, ok := err.(*statusError); ok && last != nil {
				return last, nil
			}
			return nil, err
		}
		return last, nil
	})
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.status)
}
