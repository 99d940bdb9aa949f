package interceptors

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	"github.com/morezero/ckan-portal/pkg/portal"
)

// HeaderRequestID carries a per-invocation correlation ID.
const HeaderRequestID = "X-Request-ID"

// RequestID sets X-Request-ID to a random UUID unless the request already has one.
func RequestID() portal.Interceptor {
	return portal.Before(func(_ context.Context, _ *url.URL, params *portal.RequestParams) error {
		if v, ok := params.Header(HeaderRequestID); ok && v != "" {
			return nil
		}
		params.Headers[HeaderRequestID] = uuid.NewString()
		return nil
	})
}

func requestID(params *portal.RequestParams) string {
	v, _ := params.Header(HeaderRequestID)
	return v
}
