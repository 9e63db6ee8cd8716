package dedupe

import (
	"sync"
	"time"
)

type entry struct {
	url string
	ts  time.Time
}

type seen struct {
	fingerprint string
	ts          time.Time
}

// Cache remembers which content fingerprint was last indexed for a post URL.
// Entries expire after ttl and the oldest entries are evicted past capacity.
type Cache struct {
	mu       sync.Mutex
	items    map[string]seen
	order    []entry
	capacity int
	ttl      time.Duration
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]seen, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Unchanged reports whether url was recorded with the same fingerprint inside
// the ttl window. A different fingerprint means the post was edited and
// should be written again.
func (c *Cache) Unchanged(url, fingerprint string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.items[url]
	if !ok || now.Sub(s.ts) > c.ttl {
		return false
	}
	return s.fingerprint == fingerprint
}

// Record stores the fingerprint that was just written for url.
func (c *Cache) Record(url, fingerprint string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[url] = seen{fingerprint: fingerprint, ts: now}
	c.order = append(c.order, entry{url: url, ts: now})
	c.compact(now)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		// a newer Record for the same url owns the map entry
		if s, ok := c.items[oldest.url]; ok && s.ts.Equal(oldest.ts) {
			delete(c.items, oldest.url)
		}
	}
}
