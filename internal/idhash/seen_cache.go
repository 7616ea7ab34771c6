package idhash

import "sync"

// SeenCache is a bounded set of recently seen IDs. When the cache fills, the
// older half of insertions is dropped wholesale; redelivered events older
// than that are simply re-registered, which the monotonic cluster counters
// tolerate far better than unbounded memory growth.
type SeenCache struct {
	mu       sync.Mutex
	capacity int
	current  map[string]struct{}
	previous map[string]struct{}
}

// NewSeenCache creates a cache holding roughly capacity IDs.
func NewSeenCache(capacity int) *SeenCache {
	if capacity <= 0 {
		capacity = 1 << 16
	}
	return &SeenCache{
		capacity: capacity,
		current:  make(map[string]struct{}),
		previous: make(map[string]struct{}),
	}
}

// Contains reports whether the ID is present without recording it.
func (c *SeenCache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contains(id)
}

// Add records the ID. Callers mark an ID only once the event it identifies
// has actually been accepted, so a delivery that failed outright can still
// be retried.
func (c *SeenCache) Add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(id)
}

func (c *SeenCache) contains(id string) bool {
	if _, ok := c.current[id]; ok {
		return true
	}
	_, ok := c.previous[id]
	return ok
}

func (c *SeenCache) add(id string) {
	c.current[id] = struct{}{}
	if len(c.current) >= c.capacity/2 {
		c.previous = c.current
		c.current = make(map[string]struct{})
	}
}

// Len returns the number of IDs currently tracked.
func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.current) + len(c.previous)
}
