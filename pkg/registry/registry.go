package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/grovedata/grove/internal/logger"
	"github.com/grovedata/grove/pkg/store"
)

// Registry deduplicates live volume handles by descriptor.
//
// Acquiring the same descriptor twice returns the same handle backed by one
// native open; the bounded eviction cache closes the least recently used
// volume when capacity is exceeded. Proxies never keep a resolved volume
// across operations - they come back to the registry every time, which is
// what makes them safe to serialize and safe against eviction.
//
// Example usage:
//
//	reg := registry.New(memory.NewMemoryDriver(), registry.Config{Capacity: 256})
//	defer reg.Close()
//
//	handle, _ := reg.Acquire(ctx, store.Descriptor{Path: "/data/run42", Mode: store.ModeRead})
//	same, _ := reg.Acquire(ctx, store.Descriptor{Path: "/data/run42", Mode: store.ModeRead})
//	// handle == same: one native open
//
// Thread Safety:
// One mutex serializes the whole probe-open-insert sequence, so two
// goroutines acquiring the same descriptor concurrently can never race into
// two native opens. The cost is that a hung driver Open blocks other
// acquirers for its duration; callers bound that with the context they pass.
//
// Lock ordering is Registry.mu, then the cache's internal mutex. The cache's
// eviction path closes victims directly and never calls back into the
// registry, so the ordering cannot invert.
type Registry struct {
	driver  store.Driver
	metrics RegistryMetrics

	mu    sync.Mutex
	cache *EvictingCache
}

// Config carries registry construction options.
type Config struct {
	// Capacity bounds the eviction cache. Zero or negative means
	// DefaultCacheCapacity.
	Capacity int

	// Metrics receives registry observations. Nil means no-op.
	Metrics RegistryMetrics
}

// New creates a registry on top of driver.
func New(driver store.Driver, cfg Config) *Registry {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopRegistryMetrics{}
	}

	r := &Registry{
		driver:  driver,
		metrics: metrics,
	}
	r.cache = NewEvictingCache(cfg.Capacity, func(evicted *Handle) {
		logger.Debug("Evicted volume handle %s (%s)", evicted.ID(), evicted.Descriptor().Path)
		metrics.RecordEviction()
	})
	return r
}

// Driver returns the driver this registry opens volumes with.
func (r *Registry) Driver() store.Driver {
	return r.driver
}

// Acquire returns the live handle for desc, opening the volume natively
// only when no valid cached handle exists.
//
// The full sequence - cache probe, descriptor verification, native open,
// insert - runs under the registry mutex:
//   - valid hit: the cached handle is returned and marked most recently used
//   - stale hit (handle closed under a caller that bypassed Release): the
//     dead entry is dropped and the volume reopened
//   - collision (equal key, different descriptor): the cached entry is left
//     untouched and the request is served by an unmanaged open, so two
//     different open requests never alias one handle
//   - miss: native open, insert, possible LRU eviction of another handle
//
// Returns:
//   - *Handle: a managed handle owned by the registry (collision fallback
//     excepted), shared with every other acquirer of the same descriptor
//   - error: ErrInvalidDescriptor, driver open errors, or context errors
func (r *Registry) Acquire(ctx context.Context, desc store.Descriptor) (*Handle, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	key := HashDescriptor(desc)

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, exists := r.cache.Get(key); exists {
		if !cached.Descriptor().Equal(desc) {
			logger.Warn("Descriptor hash collision on key %s (%s vs %s), serving uncached open",
				key, cached.Descriptor().Path, desc.Path)
			r.metrics.RecordCollision()
			return r.openLocked(ctx, desc, key, false)
		}

		if cached.Closed() {
			r.cache.RemoveMatching(func(k Key, h *Handle) bool {
				return k == key && h == cached
			})
		} else {
			r.metrics.RecordHit()
			return cached, nil
		}
	}

	r.metrics.RecordMiss()

	handle, err := r.openLocked(ctx, desc, key, true)
	if err != nil {
		return nil, err
	}

	r.cache.Put(key, handle)
	r.metrics.RecordCacheSize(r.cache.Len())
	return handle, nil
}

// AcquireUncached opens a volume bypassing the cache entirely.
//
// The returned handle is unmanaged: it is never cached, never evicted, and
// never deduplicated against managed handles. A concurrent Acquire of the
// same descriptor performs its own independent native open. The caller owns
// the handle and must Release it.
func (r *Registry) AcquireUncached(ctx context.Context, desc store.Descriptor) (*Handle, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.metrics.RecordBypassOpen()
	return r.openLocked(ctx, desc, HashDescriptor(desc), false)
}

// Release closes a handle's volume and strips every cache entry holding
// this same handle - matched by identity, not by key, since a handle may
// sit under a key its current descriptor no longer hashes to.
//
// Releasing an already-released handle reports ErrCloseFailed from the
// close path; the cache bookkeeping still completes, so a double release
// is an error to observe, never a corruption.
func (r *Registry) Release(handle *Handle) error {
	if handle == nil {
		return nil
	}

	closeErr := handle.close()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.cache.RemoveMatching(func(_ Key, cached *Handle) bool {
		return cached == handle
	})
	if removed > 0 {
		r.metrics.RecordCacheSize(r.cache.Len())
	}
	r.metrics.RecordRelease()

	return closeErr
}

// CacheLen returns the number of handles currently cached.
func (r *Registry) CacheLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}

// CacheCapacity returns the configured cache bound.
func (r *Registry) CacheCapacity() int {
	return r.cache.Capacity()
}

// Close releases every cached handle. Unmanaged handles are unaffected;
// their owners close them. The registry must not be used afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.cache.Flush(); err != nil {
		return fmt.Errorf("failed to flush handle cache: %w", err)
	}
	return nil
}

// openLocked performs a native open and wraps it in a handle. Called with
// r.mu held.
func (r *Registry) openLocked(ctx context.Context, desc store.Descriptor, key Key, managed bool) (*Handle, error) {
	volume, err := r.driver.Open(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume %s: %w", desc, err)
	}

	r.metrics.RecordOpen()
	handle := newHandle(desc, key, volume, managed)
	logger.Debug("Opened volume handle %s (%s, managed=%t)", handle.ID(), desc.Path, managed)
	return handle, nil
}
