package titlecache

import (
	"sync"
	"time"

	"jfresolve/models"
	"jfresolve/services/identity"
)

// DefaultTTL is how long a cached virtual title stays readable.
const DefaultTTL = 5 * time.Minute

type entry struct {
	title      models.ExternalTitle
	insertedAt time.Time
}

// Cache is the volatile bridge between search results and library lookups.
// Entries expire lazily: a stale entry is skipped on read, never swept by a
// background goroutine. Construct one per service instance and pass it by
// reference; there is no package-level instance.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[identity.ID]entry

	now func() time.Time
}

// New creates a cache with the given TTL. Zero or negative ttl selects
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[identity.ID]entry),
		now:     time.Now,
	}
}

// Put stores the title under id, overwriting any existing entry and stamping
// the current time.
func (c *Cache) Put(id identity.ID, title models.ExternalTitle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = entry{title: title, insertedAt: c.now()}
}

// Get returns the title for id, or false when the id is unknown or the entry
// has outlived the TTL. Stale entries are left in place.
func (c *Cache) Get(id identity.ID) (models.ExternalTitle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return models.ExternalTitle{}, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		return models.ExternalTitle{}, false
	}
	return e.title, true
}

// Remove evicts id. Called once an identifier is promoted to a real library
// entry or matched to an existing one.
func (c *Cache) Remove(id identity.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[identity.ID]entry)
}

// Len reports the number of stored entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
