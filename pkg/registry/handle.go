package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/grovedata/grove/pkg/store"
)

// Handle owns exactly one live volume.
//
// Handles are created only by the registry (Acquire or AcquireUncached);
// there is no exported constructor. A managed handle lives in the eviction
// cache and is shared read-only by every proxy that resolves the same
// descriptor. An unmanaged handle belongs solely to the caller that bypassed
// the cache.
//
// Lifecycle:
// A handle is destroyed by Registry.Release or by LRU eviction. Both paths
// close the underlying volume exactly once; afterwards Volume returns
// ErrStaleHandle and proxies recover by re-acquiring through the registry.
//
// Thread Safety:
// All methods are safe for concurrent use.
type Handle struct {
	id      uuid.UUID
	desc    store.Descriptor
	key     Key
	managed bool

	mu     sync.Mutex
	volume store.Volume
	closed bool
}

func newHandle(desc store.Descriptor, key Key, volume store.Volume, managed bool) *Handle {
	return &Handle{
		id:      uuid.New(),
		desc:    desc.Clone(),
		key:     key,
		managed: managed,
		volume:  volume,
	}
}

// ID returns the handle's identity token. Two handles returned by separate
// native opens always have distinct IDs, which is what the deduplication
// tests assert on.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Descriptor returns the descriptor this handle was opened with.
func (h *Handle) Descriptor() store.Descriptor {
	return h.desc.Clone()
}

// Key returns the cache key of the descriptor.
func (h *Handle) Key() Key {
	return h.key
}

// Managed reports whether the handle lives in the eviction cache. Bypassed
// handles are unmanaged: never cached, never evicted, closed only by their
// owner.
func (h *Handle) Managed() bool {
	return h.managed
}

// Closed reports whether the underlying volume has been released.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Volume returns the live volume behind this handle.
//
// Returns:
//   - error: ErrStaleHandle if the handle was released or evicted
func (h *Handle) Volume() (store.Volume, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, &store.StoreError{
			Code:    store.ErrStaleHandle,
			Message: "handle has been released",
			Path:    h.desc.Path,
		}
	}
	return h.volume, nil
}

// close releases the underlying volume.
//
// The first call closes the volume and reports the backend's close error,
// if any. Later calls return ErrCloseFailed: a double release is a reported
// error, never a second native close and never a bookkeeping failure.
func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return &store.StoreError{
			Code:    store.ErrCloseFailed,
			Message: "handle already released",
			Path:    h.desc.Path,
		}
	}

	h.closed = true
	return h.volume.Close()
}
