package storage

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/vjranagit/pricefeed/pkg/types"
)

// LatestCache caches the most recent record per pair in front of
// Store.Latest. Implementations: lruCache (in-process) and RedisCache.
type LatestCache interface {
	// Get returns the cached latest record for a pair, if present and
	// fresh.
	Get(ctx context.Context, pair string) (*types.Record, bool)

	// Set stores the latest record for a pair.
	Set(ctx context.Context, pair string, rec *types.Record)

	// Close releases cache resources.
	Close() error
}

// lruCache is an in-process LRU cache with per-entry TTL.
type lruCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	lru      *list.List
}

// cacheEntry is one cached latest record.
type cacheEntry struct {
	pair    string
	rec     *types.Record
	stored  time.Time
	element *list.Element
}

// NewLRUCache creates an in-process latest-record cache.
func NewLRUCache(capacity int, ttl time.Duration) LatestCache {
	return &lruCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*cacheEntry),
		lru:      list.New(),
	}
}

// Get implements LatestCache.Get.
func (c *lruCache) Get(ctx context.Context, pair string) (*types.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[pair]
	if !exists {
		return nil, false
	}

	// Check if entry has expired
	if time.Since(entry.stored) > c.ttl {
		c.removeLocked(pair)
		return nil, false
	}

	// Move to front of LRU list (most recently used)
	c.lru.MoveToFront(entry.element)

	return entry.rec, true
}

// Set implements LatestCache.Set.
func (c *lruCache) Set(ctx context.Context, pair string, rec *types.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[pair]; exists {
		entry.rec = rec
		entry.stored = time.Now()
		c.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{
		pair:   pair,
		rec:    rec,
		stored: time.Now(),
	}
	entry.element = c.lru.PushFront(entry)
	c.entries[pair] = entry

	// Evict oldest entry if cache is full
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.removeLocked(oldest.Value.(*cacheEntry).pair)
		}
	}
}

// removeLocked removes an entry (must hold lock).
func (c *lruCache) removeLocked(pair string) {
	if entry, exists := c.entries[pair]; exists {
		c.lru.Remove(entry.element)
		delete(c.entries, pair)
	}
}

// Size returns the current number of cached pairs.
func (c *lruCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close implements LatestCache.Close.
func (c *lruCache) Close() error {
	return nil
}

// CachedStore wraps a Store with a latest-record cache.
type CachedStore struct {
	Store
	cache  LatestCache
	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// NewCachedStore creates a cached store wrapper.
func NewCachedStore(store Store, cache LatestCache) *CachedStore {
	return &CachedStore{Store: store, cache: cache}
}

// Put writes through to the store, then refreshes the cached latest record
// when the new one supersedes it. A pair with no cached entry stays
// uncached; the next Latest fills it from the store.
func (cs *CachedStore) Put(ctx context.Context, rec types.Record) error {
	if err := cs.Store.Put(ctx, rec); err != nil {
		return err
	}

	if cached, ok := cs.cache.Get(ctx, rec.Pair); ok && rec.Timestamp >= cached.Timestamp {
		r := rec
		cs.cache.Set(ctx, rec.Pair, &r)
	}
	return nil
}

// Latest checks the cache before the store. Misses are filled; "not found"
// is never cached.
func (cs *CachedStore) Latest(ctx context.Context, pair string) (*types.Record, error) {
	if rec, ok := cs.cache.Get(ctx, pair); ok {
		cs.count(&cs.hits)
		return rec, nil
	}
	cs.count(&cs.misses)

	rec, err := cs.Store.Latest(ctx, pair)
	if err != nil {
		return nil, err
	}

	cs.cache.Set(ctx, pair, rec)
	return rec, nil
}

// HitRate returns the cache hit rate as a percentage.
func (cs *CachedStore) HitRate() float64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	total := cs.hits + cs.misses
	if total == 0 {
		return 0.0
	}
	return float64(cs.hits) / float64(total) * 100.0
}

// Close closes the cache, then the underlying store.
func (cs *CachedStore) Close() error {
	cerr := cs.cache.Close()
	if err := cs.Store.Close(); err != nil {
		return err
	}
	return cerr
}

func (cs *CachedStore) count(field *uint64) {
	cs.mu.Lock()
	*field++
	cs.mu.Unlock()
}
