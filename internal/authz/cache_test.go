package authz

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCache(ttl time.Duration) (*Cache, *time.Time) {
	cache := NewCache(ttl)
	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }
	return cache, &current
}

func TestCacheDefaultTTL(t *testing.T) {
	cache := NewCache(0)
	require.Equal(t, DefaultCacheTTL, cache.TTL())

	cache = NewCache(-time.Minute)
	require.Equal(t, DefaultCacheTTL, cache.TTL())

	cache = NewCache(5 * time.Minute)
	require.Equal(t, 5*time.Minute, cache.TTL())
}

func TestCacheSetGet(t *testing.T) {
	cache, _ := newTestCache(time.Minute)

	_, ok := cache.Get(1)
	require.False(t, ok)

	snapshot := Snapshot{UserID: 1, Active: true, Permissions: NewPermissionSet([]string{"read.employee"})}
	cache.Set(snapshot)

	got, ok := cache.Get(1)
	require.True(t, ok)
	require.True(t, got.Active)
	require.True(t, got.Permissions.Allows("read", "employee"))
	require.Equal(t, 1, cache.Len())
}

func TestCacheExpiry(t *testing.T) {
	cache, clock := newTestCache(time.Minute)
	cache.Set(Snapshot{UserID: 1, Active: true})

	*clock = clock.Add(59 * time.Second)
	_, ok := cache.Get(1)
	require.True(t, ok)

	*clock = clock.Add(2 * time.Second)
	_, ok = cache.Get(1)
	require.False(t, ok)
	require.Equal(t, 0, cache.Len(), "expired entry should be evicted on read")
}

func TestCacheSetRefreshesExpiry(t *testing.T) {
	cache, clock := newTestCache(time.Minute)
	cache.Set(Snapshot{UserID: 1})

	*clock = clock.Add(45 * time.Second)
	cache.Set(Snapshot{UserID: 1, Active: true})

	*clock = clock.Add(45 * time.Second)
	got, ok := cache.Get(1)
	require.True(t, ok)
	require.True(t, got.Active)
}

func TestCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(time.Minute)
	cache.Set(Snapshot{UserID: 1})
	cache.Set(Snapshot{UserID: 2})

	cache.Invalidate(1)
	_, ok := cache.Get(1)
	require.False(t, ok)
	_, ok = cache.Get(2)
	require.True(t, ok, "invalidation must not touch other users")

	// Invalidating an absent user is a no-op.
	cache.Invalidate(99)
	require.Equal(t, 1, cache.Len())
}

func TestCacheInvalidateAll(t *testing.T) {
	cache, _ := newTestCache(time.Minute)
	cache.Set(Snapshot{UserID: 1})
	cache.Set(Snapshot{UserID: 2})

	cache.InvalidateAll()
	require.Equal(t, 0, cache.Len())
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := NewCache(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Set(Snapshot{UserID: userID})
				cache.Get(userID)
				cache.Invalidate(userID)
			}
		}(int64(i % 4))
	}
	wg.Wait()
}
