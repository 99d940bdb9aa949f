package interceptors

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/morezero/ckan-portal/pkg/portal"
)

// RateLimit delays each request until the limiter grants a token. The
// invocation fails if the context ends first.
func RateLimit(limiter *rate.Limiter) portal.Interceptor {
	return portal.Before(func(ctx context.Context, u *url.URL, _ *portal.RequestParams) error {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit for %s: %w", u.Path, err)
		}
		return nil
	})
}

// NewLimiter returns a limiter of rps requests per second, or nil when rps is
// not positive (rate limiting disabled).
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
