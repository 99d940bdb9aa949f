// Package tokenstore keeps API tokens outside the process so they can be
// rotated without restarting clients.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no token is stored under a key.
var ErrNotFound = errors.New("tokenstore: token not found")

// Store holds tokens by key. A zero TTL means no expiration.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
