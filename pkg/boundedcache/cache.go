// Package boundedcache provides a fixed-capacity, recency-ordered key/value
// store that keeps hit, miss and eviction counters.
package boundedcache

import (
	"errors"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrInvalidCapacity = errors.New("capacity must be greater than zero")

// Stats is a point-in-time snapshot of the cache counters.
type Stats struct {
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hitRate"`
}

type Cache[K comparable, V any] struct {
	// guards capacity together with resize so Stats never reports a
	// capacity the underlying cache has not been resized to yet
	mu       sync.RWMutex
	entries  *lru.Cache[K, V]
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	entries, err := lru.New[K, V](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{
		entries:  entries,
		capacity: capacity,
	}, nil
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	value, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return value, ok
}

// Peek returns the value without touching recency or counters.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	return c.entries.Peek(key)
}

// Set inserts or overwrites key as the most recently used entry, evicting
// the least recently used entry when the cache is full.
func (c *Cache[K, V]) Set(key K, value V) {
	if evicted := c.entries.Add(key, value); evicted {
		c.evictions.Add(1)
	}
}

func (c *Cache[K, V]) Len() int {
	return c.entries.Len()
}

// Keys returns keys from least to most recently used.
func (c *Cache[K, V]) Keys() []K {
	return c.entries.Keys()
}

// Clear drops every entry. Counters are kept; clearing is not eviction.
func (c *Cache[K, V]) Clear() {
	c.entries.Purge()
}

// Resize changes the capacity, evicting least recently used entries down
// to the new capacity immediately.
func (c *Cache[K, V]) Resize(capacity int) error {
	if capacity <= 0 {
		return ErrInvalidCapacity
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := c.entries.Resize(capacity)
	c.evictions.Add(uint64(evicted))
	c.capacity = capacity
	return nil
}

func (c *Cache[K, V]) Capacity() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capacity
}

func (c *Cache[K, V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      c.entries.Len(),
		Capacity:  c.Capacity(),
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   hitRate,
	}
}
