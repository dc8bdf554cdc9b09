package authz

import (
	"sync"
	"time"
)

// DefaultCacheTTL bounds how long a resolved snapshot is trusted before the
// store is consulted again.
const DefaultCacheTTL = 120 * time.Second

// Cache is a process-local, time-bounded cache of resolved authorization
// snapshots keyed by user ID. It is safe for concurrent use; a write racing a
// read for the same key is atomic per entry.
type Cache struct {
	mu      sync.RWMutex
	entries map[int64]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	snapshot  Snapshot
	expiresAt time.Time
}

// NewCache constructs a cache with the given TTL. Non-positive TTLs fall back
// to DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[int64]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached snapshot for a user. Expired entries are evicted and
// reported as a miss.
func (c *Cache) Get(userID int64) (Snapshot, bool) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a fresher entry may have landed.
		if current, still := c.entries[userID]; still && c.now().After(current.expiresAt) {
			delete(c.entries, userID)
		}
		c.mu.Unlock()
		return Snapshot{}, false
	}
	return entry.snapshot, true
}

// Set stores a snapshot with expiry now+TTL, overwriting any prior entry for
// that user.
func (c *Cache) Set(snapshot Snapshot) {
	entry := cacheEntry{snapshot: snapshot, expiresAt: c.now().Add(c.ttl)}
	c.mu.Lock()
	c.entries[snapshot.UserID] = entry
	c.mu.Unlock()
}

// Invalidate removes the entry for one user. It is a no-op when absent.
func (c *Cache) Invalidate(userID int64) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// InvalidateAll clears every entry. Used after bulk role or permission
// changes whose blast radius is unknown.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[int64]cacheEntry)
	c.mu.Unlock()
}

// Len reports the number of live entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// TTL exposes the configured entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
