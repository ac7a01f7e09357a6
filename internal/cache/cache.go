package cache

import (
	"os"
	"sort"
	"sync"
	"time"
)

// Entry holds cached data with the time it was last touched.
type Entry[T any] struct {
	Data       T
	LastAccess time.Time
}

// Cache is a thread-safe generic cache with LRU eviction.
// A maxSize of zero or less disables eviction; callers prune with DeleteIf.
type Cache[T any] struct {
	entries map[string]Entry[T]
	mu      sync.RWMutex
	maxSize int
}

// New creates a new cache with the specified maximum number of entries.
func New[T any](maxSize int) *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]Entry[T]),
		maxSize: maxSize,
	}
}

// Get returns cached data for key.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}

	entry.LastAccess = time.Now()
	c.entries[key] = entry
	return entry.Data, true
}

// GetOrCreate returns the cached data for key, storing create() first if the
// key is absent. The bool reports whether the entry was created.
func (c *Cache[T]) GetOrCreate(key string, create func() T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.LastAccess = time.Now()
		c.entries[key] = entry
		return entry.Data, false
	}

	data := create()
	c.entries[key] = Entry[T]{Data: data, LastAccess: time.Now()}
	c.evictOldestLocked()
	return data, true
}

// Set stores data in the cache.
func (c *Cache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry[T]{
		Data:       data,
		LastAccess: time.Now(),
	}

	c.evictOldestLocked()
}

// Delete removes an entry from the cache.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeleteIf removes entries matching the predicate and returns how many were removed.
func (c *Cache[T]) DeleteIf(pred func(key string, entry Entry[T]) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if pred(key, entry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries in the cache.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictOldestLocked removes oldest entries when over capacity.
// Must be called with lock held.
func (c *Cache[T]) evictOldestLocked() {
	if c.maxSize <= 0 {
		return
	}
	excess := len(c.entries) - c.maxSize
	if excess <= 0 {
		return
	}

	type keyAccess struct {
		key        string
		lastAccess time.Time
	}
	entries := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		entries = append(entries, keyAccess{key, entry.LastAccess})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].lastAccess.Before(entries[j].lastAccess)
	})

	for i := range excess {
		delete(c.entries, entries[i].key)
	}
}

// FileChanged checks if a file has changed since it was last observed.
// Returns (changed, grew, info, err).
// - changed: true if size or modTime differs
// - grew: true if file size increased
// - info: current file info for the caller to remember
func FileChanged(path string, cachedSize int64, cachedModTime time.Time) (changed, grew bool, info os.FileInfo, err error) {
	info, err = os.Stat(path)
	if err != nil {
		return false, false, nil, err
	}
	if info.Size() == cachedSize && info.ModTime().Equal(cachedModTime) {
		return false, false, info, nil
	}
	return true, info.Size() > cachedSize, info, nil
}
