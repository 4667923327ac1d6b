// Package cache provides a small read-through TTL cache. Reads that find a
// fresh entry never hit the underlying loader; write paths call Invalidate
// synchronously before returning, so a read following a completed write
// always observes the new value. Reads that never pass through a write path
// may be stale up to the configured TTL.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache is a keyed TTL cache for one value type.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry[V]

	now func() time.Time
}

// New creates a cache whose entries stay fresh for ttl. A non-positive ttl
// disables caching entirely: every Get calls the loader.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value for key, calling load on a miss or on an
// expired entry and caching the result. A load error is returned unchanged
// and nothing is cached.
func (c *Cache[V]) Get(key string, load func() (V, error)) (V, error) {
	if c.ttl <= 0 {
		return load()
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	c.entries[key] = entry[V]{value: v, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return v, nil
}

// Invalidate drops the entries for the given keys.
func (c *Cache[V]) Invalidate(keys ...string) {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}
