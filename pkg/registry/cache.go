package registry

import (
	"container/list"
	"sync"

	"github.com/grovedata/grove/internal/logger"
)

// DefaultCacheCapacity bounds the eviction cache when no capacity is
// configured.
const DefaultCacheCapacity = 1000

// EvictingCache is a bounded LRU map from keys to handles.
//
// When an insert pushes the cache over capacity, the least recently used
// handle is evicted and its volume closed best-effort: a failing close is
// logged and swallowed, never failing the Put that triggered it. Recency is
// updated on both Get and Put.
//
// The cache closes volumes only on eviction and on Flush. RemoveMatching is
// pure bookkeeping for callers that have already closed the handle
// themselves (the release path).
//
// Thread Safety:
// All methods are guarded by one mutex. The eviction callback runs with
// that mutex held, so it must not call back into the cache or into anything
// that acquires the registry lock.
type EvictingCache struct {
	capacity int
	onEvict  func(*Handle)

	mu      sync.Mutex
	entries map[Key]*list.Element
	lru     *list.List
}

type cacheEntry struct {
	key    Key
	handle *Handle
}

// NewEvictingCache creates a cache bounded to capacity entries. A capacity
// below one falls back to DefaultCacheCapacity. onEvict, when non-nil, is
// notified after each capacity eviction (metrics hooks); it runs under the
// cache mutex.
func NewEvictingCache(capacity int, onEvict func(*Handle)) *EvictingCache {
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	return &EvictingCache{
		capacity: capacity,
		onEvict:  onEvict,
		entries:  make(map[Key]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the handle cached under key and marks it most recently used.
func (c *EvictingCache) Get(key Key) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheEntry).handle, true
}

// Put inserts a handle under key and marks it most recently used, evicting
// the LRU entry when the insert exceeds capacity.
//
// Reinserting a different handle under an existing key closes the replaced
// handle best-effort. The registry never does this (it probes before it
// opens), so the branch only matters for direct cache users.
func (c *EvictingCache) Put(key Key, handle *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.entries[key]; exists {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		if entry.handle != handle {
			c.closeEvicted(entry.handle)
			entry.handle = handle
		}
		return
	}

	if c.lru.Len() >= c.capacity {
		c.evictLRU()
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, handle: handle})
	c.entries[key] = elem
}

// RemoveMatching drops every entry whose key and handle satisfy match and
// returns how many were removed. Handles are NOT closed: callers use this
// after closing a handle themselves, or to drop entries whose handle is
// already dead.
func (c *EvictingCache) RemoveMatching(match func(Key, *Handle) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		entry := elem.Value.(*cacheEntry)
		if match(entry.key, entry.handle) {
			c.lru.Remove(elem)
			delete(c.entries, entry.key)
			removed++
		}
		elem = next
	}
	return removed
}

// Len returns the number of cached handles.
func (c *EvictingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Capacity returns the configured bound.
func (c *EvictingCache) Capacity() int {
	return c.capacity
}

// Flush closes every cached handle and empties the cache, returning the
// first close error. Used on registry shutdown.
func (c *EvictingCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for c.lru.Len() > 0 {
		elem := c.lru.Back()
		entry := elem.Value.(*cacheEntry)

		if err := entry.handle.close(); err != nil && firstErr == nil {
			firstErr = err
		}

		c.lru.Remove(elem)
		delete(c.entries, entry.key)
	}
	return firstErr
}

// evictLRU removes and closes the least recently used entry. Called with
// c.mu held.
func (c *EvictingCache) evictLRU() {
	elem := c.lru.Back()
	if elem == nil {
		return
	}

	entry := elem.Value.(*cacheEntry)
	c.lru.Remove(elem)
	delete(c.entries, entry.key)

	c.closeEvicted(entry.handle)
	if c.onEvict != nil {
		c.onEvict(entry.handle)
	}
}

// closeEvicted closes a handle on behalf of the cache. Failures are logged
// and swallowed so an eviction can never fail the Put that triggered it.
func (c *EvictingCache) closeEvicted(handle *Handle) {
	if err := handle.close(); err != nil {
		logger.Warn("Failed to close evicted volume %s: %v", handle.Descriptor().Path, err)
	}
}
