package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/nadzzz/signalbox/internal/utterance"
)

// cacheEntry is one stored result with its insertion time.
type cacheEntry struct {
	result   *utterance.Result
	storedAt time.Time
}

// resultCache holds successful invocation results for identical repeat
// requests. Entries expire after the TTL; when the cache is full the oldest
// entry makes room for the new one.
type resultCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]cacheEntry
}

func newResultCache(ttl time.Duration, capacity int) *resultCache {
	return &resultCache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]cacheEntry, capacity),
	}
}

// cacheKey derives the lookup key from everything that makes two requests
// interchangeable: the normalized transcript, the user and the language.
func cacheKey(normalized, userID, language string) string {
	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(language))
	return hex.EncodeToString(h.Sum(nil))
}

// get returns a deep copy of the entry for key, expiring it when stale.
func (c *resultCache) get(key string, now time.Time) (*utterance.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if now.Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.result.Clone(), true
}

// put stores a deep copy of the result under key. Replacement of an existing
// key is atomic with respect to get; inserting into a full cache evicts the
// oldest entry first.
func (c *resultCache) put(key string, result *utterance.Result, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[key] = cacheEntry{result: result.Clone(), storedAt: now}
}

// evictOldest removes the entry with the earliest insertion time.
// Called with the lock held.
func (c *resultCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.storedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.storedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// len reports the number of stored entries, expired or not.
func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
