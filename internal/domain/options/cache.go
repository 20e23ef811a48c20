package options

import (
	"sync"
	"time"
)

type cacheEntry struct {
	opts      *Options
	expiresAt time.Time
}

// Cache is a thread-safe TTL cache for computed option sets, keyed by tier
// scope. Expiry is lazy; concurrent misses on the same key may recompute the
// same result, which is accepted over holding a lock across store queries.
type Cache struct {
	entries map[string]*cacheEntry
	mu      sync.RWMutex
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*cacheEntry)}
}

// Get retrieves a cached option set, deleting it on lazy expiry.
func (c *Cache) Get(key string) (*Options, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.opts, true
}

// Set stores an option set with the given TTL.
func (c *Cache) Set(key string, opts *Options, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{opts: opts, expiresAt: time.Now().Add(ttl)}
}

// Clear drops every entry. Used by tests.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}
