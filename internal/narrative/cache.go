package narrative

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultCacheTTL is how long a generated narrative is reused.
const DefaultCacheTTL = 15 * time.Minute

// Cache holds the most recent generated narrative. It is a single slot, not
// keyed by input: any fresh entry is returned regardless of what the current
// briefing contains. Safe for concurrent use.
type Cache struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu       sync.Mutex
	text     string
	storedAt time.Time
}

// NewCache creates an empty Cache. A nil clock uses real time; a non-positive
// ttl uses DefaultCacheTTL.
func NewCache(clock clockwork.Clock, ttl time.Duration) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{ttl: ttl, clock: clock}
}

// Get returns the cached text if it is younger than the TTL.
func (c *Cache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.text == "" || c.clock.Since(c.storedAt) >= c.ttl {
		return "", false
	}
	return c.text, true
}

// Put replaces the cached text and restarts the TTL.
func (c *Cache) Put(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	c.storedAt = c.clock.Now()
}

// Reset empties the cache.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = ""
	c.storedAt = time.Time{}
}
