package resolver

import (
	"net"
	"sync"
	"time"
)

// maxCacheTTL caps how long a cache entry is honored regardless of the
// answer's own TTL, per spec ¤4.D.
const maxCacheTTL = 300 * time.Second

type cacheEntry struct {
	ips       []net.IP
	expiresAt time.Time
}

// cache is a small TTL-bounded hostname -> addresses cache. Expiry is
// checked lazily on lookup; there is no background sweep.
type cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func newCache() *cache {
	return &cache{entries: make(map[string]cacheEntry), now: time.Now}
}

func (c *cache) get(hostname string) ([]net.IP, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[hostname]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, hostname)
		return nil, false
	}
	return e.ips, true
}

func (c *cache) put(hostname string, ips []net.IP, ttl time.Duration) {
	if ttl <= 0 || ttl > maxCacheTTL {
		ttl = maxCacheTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hostname] = cacheEntry{ips: ips, expiresAt: c.now().Add(ttl)}
}
