// Package cache is a small query cache keyed by slash-separated strings such
// as "feeds" or "feeds/acme". Entries go stale after a fixed time, concurrent
// fetches of one key share a single call and invalidation works by prefix.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// DefaultStaleTime is how long a fetched value is served without refetching.
const DefaultStaleTime = 30 * time.Second

// Cache stores fetched values until they go stale.
// All methods are safe for concurrent use.
type Cache struct {
	entries *expirable.LRU[string, any]
	group   singleflight.Group
}

// New creates a cache holding at most size entries, each fresh for staleTime.
func New(size int, staleTime time.Duration) *Cache {
	if size <= 0 {
		size = 256
	}
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	return &Cache{entries: expirable.NewLRU[string, any](size, nil, staleTime)}
}

// Get returns the cached value for key if it is still fresh.
func (c *Cache) Get(key string) (any, bool) {
	return c.entries.Get(key)
}

// Set stores value under key, resetting its stale timer.
func (c *Cache) Set(key string, value any) {
	c.entries.Add(key, value)
}

// Invalidate drops every entry whose key equals one of the prefixes or starts
// with prefix followed by "/". With no prefixes it empties the cache.
func (c *Cache) Invalidate(prefixes ...string) {
	if len(prefixes) == 0 {
		c.entries.Purge()
		return
	}
	for _, key := range c.entries.Keys() {
		for _, p := range prefixes {
			if key == p || strings.HasPrefix(key, p+"/") {
				c.entries.Remove(key)
				break
			}
		}
	}
}

// Fetch returns the fresh value for key, or calls fn to load it. Concurrent
// callers for the same key share one call to fn. Errors are not cached.
func Fetch[T any](ctx context.Context, c *Cache, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return fn(ctx)
	}

	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		val, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, val)
		return val, nil
	})
	if err != nil {
		return zero, err
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache key %q holds %T", key, v)
	}
	return typed, nil
}

// Key joins parts into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, "/")
}
