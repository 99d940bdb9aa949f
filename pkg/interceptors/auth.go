package interceptors

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/morezero/ckan-portal/pkg/portal"
	"github.com/morezero/ckan-portal/pkg/tokenstore"
)

// BearerFromStore reads the token under key before every request and uses it
// as the Authorization header, so rotated tokens apply without rebuilding the
// portal. When no token is stored the request keeps the portal's own token.
// Store failures abort the invocation.
func BearerFromStore(store tokenstore.Store, key string) portal.Interceptor {
	return portal.Before(func(ctx context.Context, _ *url.URL, params *portal.RequestParams) error {
		token, err := store.Get(ctx, key)
		if errors.Is(err, tokenstore.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("token refresh: %w", err)
		}
		params.Headers[portal.HeaderAuthorization] = token
		return nil
	})
}
