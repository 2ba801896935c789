package cache

import (
	"sync"
	"time"
)

// pruneInterval is the number of writes between sweeps for expired entries.
const pruneInterval = 256

type memoryEntry struct {
	value   string
	expires time.Time // zero when the entry never expires
}

// InMemoryCache keeps entries in process memory. It is the first tier of the
// client and the default persistent tier when nothing else is configured.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	writes  int
	now     func() time.Time
}

var _ Enumerable = (*InMemoryCache)(nil)

// NewMemoryCache creates an in-memory cache. A ttl of zero or less keeps
// entries until they are deleted.
func NewMemoryCache(ttl time.Duration) *InMemoryCache {
	if ttl < 0 {
		ttl = 0
	}
	return &InMemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewInMemoryCache is NewMemoryCache with the TTL in seconds.
func NewInMemoryCache(ttlSeconds int) *InMemoryCache {
	return NewMemoryCache(time.Duration(ttlSeconds) * time.Second)
}

func (e memoryEntry) expiredAt(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// Get returns the live value of key. An expired entry is dropped.
func (c *InMemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}

	if entry.expiredAt(c.now()) {
		c.mu.Lock()
		if current, ok := c.entries[key]; ok && current == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false
	}
	return entry.value, true
}

// Set stores value under key, restarting its TTL.
func (c *InMemoryCache) Set(key string, value string) error {
	now := c.now()
	entry := memoryEntry{value: value}
	if c.ttl > 0 {
		entry.expires = now.Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	c.writes++
	if c.ttl > 0 && c.writes%pruneInterval == 0 {
		c.pruneLocked(now)
	}
	return nil
}

// Delete removes key.
func (c *InMemoryCache) Delete(key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Prune drops every expired entry and returns how many it removed.
func (c *InMemoryCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked(c.now())
}

func (c *InMemoryCache) pruneLocked(now time.Time) int {
	removed := 0
	for key, entry := range c.entries {
		if entry.expiredAt(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included until they
// are read or pruned.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *InMemoryCache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Entries returns the live entries.
func (c *InMemoryCache) Entries() (map[string]string, error) {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.entries))
	for key, entry := range c.entries {
		if !entry.expiredAt(now) {
			out[key] = entry.value
		}
	}
	return out, nil
}
