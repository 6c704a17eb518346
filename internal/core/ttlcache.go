// Package core provides shared infrastructure for the sessiond service.
package core

import (
	"sync"
	"time"
)

// TTLCache is a small in-memory cache mapping string keys to values
// with a per-entry expiry. It backs the role directory and admin
// allow-list lookups so a remote round-trip is not paid per check.
// Concurrency: methods are safe for concurrent use.
type TTLCache[V any] struct {
	mu    sync.Mutex
	items map[string]ttlEntry[V]
	now   func() time.Time // injectable clock for tests
}

type ttlEntry[V any] struct {
	value  V
	expiry time.Time // zero means no expiry
}

// TTLCacheConfig groups constructor options.
type TTLCacheConfig struct {
	Now func() time.Time
}

// NewTTLCache creates an empty cache with the given config.
func NewTTLCache[V any](cfg TTLCacheConfig) *TTLCache[V] {
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &TTLCache[V]{
		items: make(map[string]ttlEntry[V]),
		now:   nowFn,
	}
}

// Get returns the value for key if present and not expired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, found := c.items[key]
	if !found {
		var zero V
		return zero, false
	}
	if c.expired(ent) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return ent.value, true
}

// Set inserts or updates a value with TTL.
// ttl <= 0 means no expiration.
func (c *TTLCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.items[key] = ttlEntry[V]{value: value, expiry: exp}
}

// Delete removes a single key.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Purge removes every entry.
func (c *TTLCache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]ttlEntry[V])
}

// Len returns the number of entries, counting not-yet-evicted expired ones.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTLCache[V]) expired(ent ttlEntry[V]) bool {
	return !ent.expiry.IsZero() && !c.now().Before(ent.expiry)
}
