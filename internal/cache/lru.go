// Package cache wraps hashicorp's LRU with TTL expiry. The explainer
// keys attribution results by feature-vector hash here so a repeat
// explanation request skips the coalition sampling pass.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUWithTTL is a size-bounded cache whose entries also expire after a
// fixed duration. Safe for concurrent use.
type LRUWithTTL[K comparable, V any] struct {
	mu      sync.Mutex
	entries *lru.Cache[K, *record[V]]
	ttl     time.Duration
	hits    uint64
	misses  uint64
	evicted uint64
}

type record[V any] struct {
	value     V
	expiresAt time.Time
}

// NewLRUWithTTL builds a cache holding at most size entries. A ttl of 0
// disables expiry and leaves only LRU eviction.
func NewLRUWithTTL[K comparable, V any](size int, ttl time.Duration) (*LRUWithTTL[K, V], error) {
	entries, err := lru.New[K, *record[V]](size)
	if err != nil {
		return nil, err
	}
	return &LRUWithTTL[K, V]{entries: entries, ttl: ttl}, nil
}

// Get returns the cached value for key, or false when the key is absent
// or its entry has expired. Expired entries count as misses.
func (c *LRUWithTTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.entries.Get(key)
	if !ok || (c.ttl > 0 && time.Now().After(rec.expiresAt)) {
		c.misses++
		var zero V
		return zero, false
	}

	c.hits++
	return rec.value, true
}

// Set stores value under key, evicting the least recently used entry
// when the cache is full.
func (c *LRUWithTTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := &record[V]{value: value}
	if c.ttl > 0 {
		rec.expiresAt = time.Now().Add(c.ttl)
	}
	if c.entries.Add(key, rec) {
		c.evicted++
	}
}

// Delete removes key from the cache.
func (c *LRUWithTTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key)
}

// Len returns the number of resident entries, expired ones included.
func (c *LRUWithTTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Clear drops every entry. Counters are kept.
func (c *LRUWithTTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

// Stats is a point-in-time snapshot of cache counters, exposed on the
// explainer for observability.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Evicted uint64  `json:"evicted"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns current counters.
func (c *LRUWithTTL[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Evicted: c.evicted,
		Size:    c.entries.Len(),
		HitRate: hitRate,
	}
}

// CleanupExpired removes entries past their TTL and reports how many
// were dropped. O(n) over resident keys, meant for an infrequent
// background sweep.
func (c *LRUWithTTL[K, V]) CleanupExpired() int {
	if c.ttl == 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for _, key := range c.entries.Keys() {
		if rec, ok := c.entries.Peek(key); ok && now.After(rec.expiresAt) {
			c.entries.Remove(key)
			removed++
		}
	}
	return removed
}

// Close drops all entries. The cache holds no other resources.
func (c *LRUWithTTL[K, V]) Close() error {
	c.Clear()
	return nil
}
