// Package cache provides a size-bounded LRU cache with per-entry TTL.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// LRUCache is a thread-safe LRU cache with TTL support
type LRUCache[V any] struct {
	items    *lru.Cache[string, entry[V]]
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewLRUCache creates a new LRU cache. A non-positive capacity falls back to 1.
func NewLRUCache[V any](capacity int, ttl time.Duration) *LRUCache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	// lru.New only fails for a non-positive size.
	items, _ := lru.New[string, entry[V]](capacity)
	return &LRUCache[V]{
		items:    items,
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get retrieves an item from the cache
func (c *LRUCache[V]) Get(key string) (V, bool) {
	var zero V

	e, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.items.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Set adds or updates an item in the cache
func (c *LRUCache[V]) Set(key string, value V) {
	c.items.Add(key, entry[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Delete removes an item from the cache
func (c *LRUCache[V]) Delete(key string) {
	c.items.Remove(key)
}

// Clear removes all items from the cache
func (c *LRUCache[V]) Clear() {
	c.items.Purge()
}

// Len returns the current number of items in the cache, expired ones included
func (c *LRUCache[V]) Len() int {
	return c.items.Len()
}

// CleanupExpired removes all expired items (should be called periodically)
func (c *LRUCache[V]) CleanupExpired() int {
	now := c.now()
	removed := 0
	for _, key := range c.items.Keys() {
		if e, ok := c.items.Peek(key); ok && now.After(e.expiresAt) {
			c.items.Remove(key)
			removed++
		}
	}
	return removed
}

// Stats returns cache statistics
type Stats struct {
	Capacity int
	Size     int
	TTL      time.Duration
}

// GetStats returns current cache statistics
func (c *LRUCache[V]) GetStats() Stats {
	return Stats{
		Capacity: c.capacity,
		Size:     c.items.Len(),
		TTL:      c.ttl,
	}
}
