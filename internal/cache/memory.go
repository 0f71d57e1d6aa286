package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache is an in-process LRU with per-entry TTL. Expiry is checked
// on read; an expired entry counts as a miss and is evicted in place.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	now func() time.Time
}

type memoryEntry struct {
	key       string
	value     Entry
	expiresAt time.Time
}

// NewMemoryCache creates a cache holding at most maxSize entries for at
// most ttl each.
func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the entry for the query, refreshing its recency.
func (c *MemoryCache) Get(_ context.Context, query string) (*Entry, bool) {
	key := Fingerprint(query)

	c.mu.Lock()
	elem, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	me := elem.Value.(*memoryEntry)
	if c.now().After(me.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	c.order.MoveToFront(elem)
	value := me.value
	c.mu.Unlock()

	c.hits.Add(1)
	return &value, true
}

// Set stores the entry, evicting the least recently used one at capacity.
func (c *MemoryCache) Set(_ context.Context, query string, entry Entry) {
	key := Fingerprint(query)
	if entry.CachedAt.IsZero() {
		entry.CachedAt = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		me := elem.Value.(*memoryEntry)
		me.value = entry
		me.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*memoryEntry).key)
		}
	}
	c.entries[key] = c.order.PushFront(&memoryEntry{
		key:       key,
		value:     entry,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Stats returns hit/miss counters and current occupancy.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	size := c.order.Len()
	c.mu.Unlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Size:    size,
		MaxSize: c.maxSize,
		HitRate: hitRate(hits, misses),
	}
}

// Clear drops every entry. Counters are kept.
func (c *MemoryCache) Clear(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}
