// Package cache provides a small typed read-through cache on Redis for the
// resolver's hot path. A nil *Cache is a valid no-op instance, so callers
// can run without Redis configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key is absent (or caching is disabled).
var ErrNotFound = errors.New("cache: not found")

// Cache stores JSON-serialized values of type V under a key prefix.
type Cache[V any] struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New creates a cache. prefix namespaces the keys; ttl is applied to every
// Set.
func New[V any](client redis.UniversalClient, prefix string, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get retrieves a value by key. Returns ErrNotFound on a miss.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V
	if c == nil || c.client == nil {
		return zero, ErrNotFound
	}

	data, err := c.client.Get(ctx, c.prefix+":"+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, err
	}

	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, err
	}
	return v, nil
}

// Set stores a value under key with the configured TTL.
func (c *Cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	if ttl == 0 {
		ttl = c.ttl
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+":"+key, data, ttl).Err()
}

// Delete removes a key. Deleting a missing key is not an error.
func (c *Cache[V]) Delete(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.prefix+":"+key).Err()
}
