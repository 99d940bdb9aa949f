package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

const logPrefix = "tokenstore:redis"

// Redis implements Store on a Redis server.
type Redis struct {
	client *backend.Client
	prefix string
}

// Option configures a Redis store.
type Option func(*Redis)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// NewRedis connects to a Redis server.
func NewRedis(address, password string, db int, opts ...Option) *Redis {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(client, opts...)
}

// NewRedisFromClient creates a store on an existing client.
func NewRedisFromClient(client *backend.Client, opts ...Option) *Redis {
	r := &Redis{client: client, prefix: "ckan:token:"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get returns the token stored under key.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	token, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, backend.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%s - get %s: %w", logPrefix, key, err)
	}
	return token, nil
}

// Set stores a token. A zero ttl keeps it until deleted.
func (r *Redis) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), token, ttl).Err(); err != nil {
		return fmt.Errorf("%s - set %s: %w", logPrefix, key, err)
	}
	return nil
}

// Delete removes a token. Deleting a missing key is not an error.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%s - delete %s: %w", logPrefix, key, err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
