// Package cache provides comparison result caches for Baobab.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultLocalSize = 10000

// Stats is a snapshot of an LRU cache.
type Stats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// LRUCache is an in-process cache bounded by entry count. Expired entries
// are dropped lazily on lookup.
type LRUCache struct {
	comparisons

	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	recency  *list.List // front is most recently used
	clock    clockwork.Clock

	hits, misses, evictions uint64
}

type lruEntry struct {
	key     string
	value   []byte
	expires time.Time
}

// NewLRUCache returns an LRU holding at most capacity entries.
func NewLRUCache(capacity int) *LRUCache {
	return NewLRUCacheWithClock(capacity, clockwork.NewRealClock())
}

// NewLRUCacheWithClock is NewLRUCache with an injectable clock for expiry.
func NewLRUCacheWithClock(capacity int, clock clockwork.Clock) *LRUCache {
	if capacity <= 0 {
		capacity = defaultLocalSize
	}
	c := &LRUCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		recency:  list.New(),
		clock:    clock,
	}
	c.comparisons = comparisons{s: c}
	return c
}

func (c *LRUCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, nil
	}
	e := elem.Value.(*lruEntry)
	if !c.clock.Now().Before(e.expires) {
		c.drop(elem)
		c.misses++
		return nil, nil
	}
	c.recency.MoveToFront(elem)
	c.hits++
	return e.value, nil
}

func (c *LRUCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(ttl)
	if elem, ok := c.entries[key]; ok {
		e := elem.Value.(*lruEntry)
		e.value, e.expires = value, expires
		c.recency.MoveToFront(elem)
		return nil
	}

	c.entries[key] = c.recency.PushFront(&lruEntry{key: key, value: value, expires: expires})
	for c.recency.Len() > c.capacity {
		c.drop(c.recency.Back())
		c.evictions++
	}
	return nil
}

func (c *LRUCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.drop(elem)
	}
	return nil
}

func (c *LRUCache) Ping(context.Context) error { return nil }

// Close empties the cache. It stays usable afterwards.
func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.recency.Init()
	return nil
}

func (c *LRUCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      c.recency.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *LRUCache) drop(elem *list.Element) {
	c.recency.Remove(elem)
	delete(c.entries, elem.Value.(*lruEntry).key)
}
