package fetch

import (
	"sync"
	"time"

	"github.com/abelbrown/newsdesk/internal/news"
)

// DefaultTTL is how long fetched source results stay fresh.
const DefaultTTL = 5 * time.Minute

type cacheEntry struct {
	items   []news.Item
	fetched time.Time
}

// ttlCache holds per-source fetch results keyed by source URL.
// Entries expire after the configured TTL; expired entries are
// overwritten on the next successful fetch (last write wins).
type ttlCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newTTLCache(ttl time.Duration) *ttlCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ttlCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// get returns a copy of the cached items for key, or nil when the
// entry is absent or older than the TTL.
func (c *ttlCache) get(key string, now time.Time) []news.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if now.Sub(entry.fetched) >= c.ttl {
		return nil
	}

	items := make([]news.Item, len(entry.items))
	copy(items, entry.items)
	return items
}

func (c *ttlCache) put(key string, items []news.Item, now time.Time) {
	stored := make([]news.Item, len(items))
	copy(stored, items)

	c.mu.Lock()
	c.entries[key] = cacheEntry{items: stored, fetched: now}
	c.mu.Unlock()
}
