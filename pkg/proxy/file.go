// Package proxy provides transportable views over registry-managed volumes.
//
// A File is the root proxy for one open volume; Group and Dataset are thin
// relations (root descriptor plus internal path) that re-resolve their
// backing volume through the registry on every operation. None of them hold
// a native handle in their serialized form, so they survive serialization
// boundaries and cache eviction transparently: whatever closed the volume,
// the next operation reopens it through the same deduplicating path as live
// use.
package proxy

import (
	"context"
	"sync"

	"github.com/grovedata/grove/pkg/registry"
	"github.com/grovedata/grove/pkg/store"
)

// File is the root proxy for a volume identified by its open descriptor.
//
// A managed file never pins the volume: each operation re-acquires through
// the registry, so eviction between operations is invisible. A file opened
// with OpenUncached pins its own unmanaged handle instead; it is invisible
// to the cache and lives until the file is closed.
//
// A file decoded from serialized form is unbound: it attaches to the
// process default registry on first use unless rebound with WithRegistry.
type File struct {
	desc      store.Descriptor
	skipCache bool

	mu     sync.Mutex
	reg    *registry.Registry
	last   *registry.Handle
	closed bool
}

// Open opens a managed file through reg. The initial acquire runs eagerly
// so bad descriptors fail here, not on first child access.
func Open(ctx context.Context, reg *registry.Registry, desc store.Descriptor) (*File, error) {
	handle, err := reg.Acquire(ctx, desc)
	if err != nil {
		return nil, err
	}

	return &File{
		desc: handle.Descriptor(),
		reg:  reg,
		last: handle,
	}, nil
}

// OpenUncached opens a file that bypasses the handle cache. The volume is
// opened natively regardless of what the cache holds and is closed only by
// Close, never by eviction.
func OpenUncached(ctx context.Context, reg *registry.Registry, desc store.Descriptor) (*File, error) {
	handle, err := reg.AcquireUncached(ctx, desc)
	if err != nil {
		return nil, err
	}

	return &File{
		desc:      handle.Descriptor(),
		skipCache: true,
		reg:       reg,
		last:      handle,
	}, nil
}

// Descriptor returns the open descriptor this file reconstructs from.
func (f *File) Descriptor() store.Descriptor {
	return f.desc.Clone()
}

// SkipCache reports whether this file bypasses the handle cache.
func (f *File) SkipCache() bool {
	return f.skipCache
}

// Root returns the proxy for the volume's root group.
func (f *File) Root() *Group {
	return &Group{file: f, path: "/"}
}

// WithRegistry binds the file (and every proxy rooted in it) to reg,
// overriding the process default. Returns the file for chaining.
func (f *File) WithRegistry(reg *registry.Registry) *File {
	f.mu.Lock()
	f.reg = reg
	f.mu.Unlock()
	return f
}

// Close releases the file's claim on its volume.
//
// For a bypassed file this closes the pinned unmanaged handle. For a
// managed file it releases the most recently acquired handle and strips it
// from the cache; a handle already closed by eviction needs no further
// release. Either way the proxy itself becomes unusable and later
// operations fail with ErrStaleHandle.
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return &store.StoreError{
			Code:    store.ErrCloseFailed,
			Message: "file proxy already closed",
			Path:    f.desc.Path,
		}
	}
	f.closed = true
	handle := f.last
	reg := f.reg
	f.last = nil
	f.mu.Unlock()

	if handle == nil || reg == nil {
		return nil
	}
	if handle.Closed() {
		return nil
	}
	return reg.Release(handle)
}

// resolve returns the volume currently backing this file, acquiring it
// through the registry. Managed files go through the deduplicating cache
// every time; bypassed files reuse their pinned handle, opening it lazily
// when the file was reconstructed from serialized form.
func (f *File) resolve(ctx context.Context) (store.Volume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, &store.StoreError{
			Code:    store.ErrStaleHandle,
			Message: "file proxy is closed",
			Path:    f.desc.Path,
		}
	}

	reg, err := f.registryLocked()
	if err != nil {
		return nil, err
	}

	if f.skipCache {
		if f.last == nil {
			handle, err := reg.AcquireUncached(ctx, f.desc)
			if err != nil {
				return nil, err
			}
			f.last = handle
		}
		return f.last.Volume()
	}

	handle, err := reg.Acquire(ctx, f.desc)
	if err != nil {
		return nil, err
	}
	f.last = handle
	return handle.Volume()
}

// registryLocked returns the bound registry, falling back to the process
// default for proxies reconstructed from serialized form. Called with f.mu
// held.
func (f *File) registryLocked() (*registry.Registry, error) {
	if f.reg == nil {
		reg, err := registry.Default()
		if err != nil {
			return nil, err
		}
		f.reg = reg
	}
	return f.reg, nil
}
