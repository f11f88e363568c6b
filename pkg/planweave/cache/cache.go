// Package cache provides a bounded LRU cache for resolved node types.
//
// Front ends resolving imported workflow types repeatedly hit the same
// handful of definitions; a small LRU in front of the resolver keeps
// those resolutions cheap without letting an unbounded catalog grow in
// memory. The cache is generic and carries hit/miss counters so callers
// can size the capacity from observed behavior.
package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the cache size used when none is configured.
const DefaultCapacity = 256

// Cache is a bounded LRU keyed by comparable K. It is safe for
// concurrent use.
type Cache[K comparable, V any] struct {
	lru    *lru.Cache[K, V]
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache holding at most capacity entries. Capacity must
// be positive; zero or negative falls back to DefaultCapacity.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	inner, err := lru.New[K, V](capacity)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache[K, V]{lru: inner}, nil
}

// Get returns the cached value for a key and whether it was present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Put stores a value, evicting the least recently used entry when full.
func (c *Cache[K, V]) Put(key K, value V) {
	c.lru.Add(key, value)
}

// GetOrLoad returns the cached value or loads, stores and returns it.
// Concurrent loads of the same key may race; the last store wins, which
// is acceptable for idempotent resolution.
func (c *Cache[K, V]) GetOrLoad(key K, load func(K) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load(key)
	if err != nil {
		var zero V
		return zero, err
	}
	c.lru.Add(key, v)
	return v, nil
}

// Remove drops a key from the cache.
func (c *Cache[K, V]) Remove(key K) {
	c.lru.Remove(key)
}

// Purge drops every entry. Counters are not reset.
func (c *Cache[K, V]) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Stats reports the lifetime hit and miss counts.
func (c *Cache[K, V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
