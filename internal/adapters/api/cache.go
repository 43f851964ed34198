package api

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// metadataCache is a bounded-TTL cache for repository metadata and rate-limit
// reads, keyed by "{owner}/{name}". The contribution-history path never
// consults it.
type metadataCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newMetadataCache(ttl time.Duration) *metadataCache {
	return &metadataCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *metadataCache) get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *metadataCache) set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}
