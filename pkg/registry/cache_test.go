package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovedata/grove/pkg/store"
	"github.com/grovedata/grove/pkg/store/memory"
)

// newCacheTestHandle opens a fresh volume on the shared driver and wraps it
// in a managed handle, the way the registry's open path does.
func newCacheTestHandle(t *testing.T, driver store.Driver, path string) *Handle {
	t.Helper()

	desc := store.Descriptor{Path: path, Mode: store.ModeCreate}
	volume, err := driver.Open(context.Background(), desc)
	require.NoError(t, err)

	return newHandle(desc, HashDescriptor(desc), volume, true)
}

func TestEvictingCacheGetPut(t *testing.T) {
	driver := memory.NewMemoryDriver()
	defer driver.Close()

	cache := NewEvictingCache(4, nil)
	handle := newCacheTestHandle(t, driver, "/vol/a")

	_, exists := cache.Get(handle.Key())
	assert.False(t, exists, "empty cache should miss")

	cache.Put(handle.Key(), handle)

	got, exists := cache.Get(handle.Key())
	require.True(t, exists)
	assert.Same(t, handle, got)
	assert.Equal(t, 1, cache.Len())
}

func TestEvictingCacheCapacityFallback(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		want     int
	}{
		{name: "zero falls back to default", capacity: 0, want: DefaultCacheCapacity},
		{name: "negative falls back to default", capacity: -5, want: DefaultCacheCapacity},
		{name: "positive kept", capacity: 42, want: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewEvictingCache(tt.capacity, nil)
			assert.Equal(t, tt.want, cache.Capacity())
		})
	}
}

func TestEvictingCacheEvictsLeastRecentlyUsed(t *testing.T) {
	driver := memory.NewMemoryDriver()
	defer driver.Close()

	var evicted []*Handle
	cache := NewEvictingCache(2, func(h *Handle) {
		evicted = append(evicted, h)
	})

	a := newCacheTestHandle(t, driver, "/vol/a")
	b := newCacheTestHandle(t, driver, "/vol/b")
	c := newCacheTestHandle(t, driver, "/vol/c")

	cache.Put(a.Key(), a)
	cache.Put(b.Key(), b)

	// Touch a so b becomes the LRU victim.
	_, exists := cache.Get(a.Key())
	require.True(t, exists)

	cache.Put(c.Key(), c)

	assert.Equal(t, 2, cache.Len())
	require.Len(t, evicted, 1)
	assert.Same(t, b, evicted[0])
	assert.True(t, b.Closed(), "evicted handle should have its volume closed")

	_, exists = cache.Get(b.Key())
	assert.False(t, exists, "evicted entry should be gone")

	for _, survivor := range []*Handle{a, c} {
		got, exists := cache.Get(survivor.Key())
		require.True(t, exists)
		assert.Same(t, survivor, got)
		assert.False(t, survivor.Closed())
	}
}

func TestEvictingCachePutPromotesExisting(t *testing.T) {
	driver := memory.NewMemoryDriver()
	defer driver.Close()

	cache := NewEvictingCache(2, nil)

	a := newCacheTestHandle(t, driver, "/vol/a")
	b := newCacheTestHandle(t, driver, "/vol/b")
	c := newCacheTestHandle(t, driver, "/vol/c")

	cache.Put(a.Key(), a)
	cache.Put(b.Key(), b)

	// Reinserting a promotes it, so the next eviction takes b.
	cache.Put(a.Key(), a)
	cache.Put(c.Key(), c)

	_, exists := cache.Get(a.Key())
	assert.True(t, exists)
	_, exists = cache.Get(b.Key())
	assert.False(t, exists)
	assert.True(t, b.Closed())
	assert.False(t, a.Closed())
}

func TestEvictingCacheReplaceClosesPrevious(t *testing.T) {
	driver := memory.NewMemoryDriver()
	defer driver.Close()

	cache := NewEvictingCache(4, nil)

	old := newCacheTestHandle(t, driver, "/vol/a")
	replacement := newCacheTestHandle(t, driver, "/vol/a")

	cache.Put(old.Key(), old)
	cache.Put(old.Key(), replacement)

	assert.True(t, old.Closed(), "replaced handle should be closed")
	assert.False(t, replacement.Closed())

	got, exists := cache.Get(old.Key())
	require.True(t, exists)
	assert.Same(t, replacement, got)
	assert.Equal(t, 1, cache.Len())
}

func TestEvictingCacheRemoveMatchingDoesNotClose(t *testing.T) {
	driver := memory.NewMemoryDriver()
	defer driver.Close()

	cache := NewEvictingCache(4, nil)

	a := newCacheTestHandle(t, driver, "/vol/a")
	b := newCacheTestHandle(t, driver, "/vol/b")
	cache.Put(a.Key(), a)
	cache.Put(b.Key(), b)

	removed := cache.RemoveMatching(func(_ Key, h *Handle) bool {
		return h == a
	})

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, cache.Len())
	assert.False(t, a.Closed(), "removal is bookkeeping only, never a close")

	_, exists := cache.Get(a.Key())
	assert.False(t, exists)
	_, exists = cache.Get(b.Key())
	assert.True(t, exists)
}

func TestEvictingCacheRemoveMatchingNoMatches(t *testing.T) {
	driver := memory.NewMemoryDriver()
	defer driver.Close()

	cache := NewEvictingCache(4, nil)
	a := newCacheTestHandle(t, driver, "/vol/a")
	cache.Put(a.Key(), a)

	removed := cache.RemoveMatching(func(_ Key, _ *Handle) bool {
		return false
	})

	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, cache.Len())
}

func TestEvictingCacheFlush(t *testing.T) {
	driver := memory.NewMemoryDriver()
	defer driver.Close()

	cache := NewEvictingCache(4, nil)

	a := newCacheTestHandle(t, driver, "/vol/a")
	b := newCacheTestHandle(t, driver, "/vol/b")
	cache.Put(a.Key(), a)
	cache.Put(b.Key(), b)

	require.NoError(t, cache.Flush())

	assert.Equal(t, 0, cache.Len())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}

func TestEvictingCacheFlushReportsFirstError(t *testing.T) {
	driver := memory.NewMemoryDriver()
	defer driver.Close()

	cache := NewEvictingCache(4, nil)

	healthy := newCacheTestHandle(t, driver, "/vol/a")
	dead := newCacheTestHandle(t, driver, "/vol/b")
	cache.Put(healthy.Key(), healthy)
	cache.Put(dead.Key(), dead)

	// Close one handle out of band so its Flush close fails.
	require.NoError(t, dead.close())

	err := cache.Flush()
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrCloseFailed))

	assert.Equal(t, 0, cache.Len(), "flush empties the cache even on error")
	assert.True(t, healthy.Closed())
}
