package memory

import (
	"sync"

	"github.com/grovedata/grove/pkg/store"
)

// memoryVolume is one open of an in-memory volume. The embedded groupNode
// is the root group, so the volume satisfies store.Volume directly.
type memoryVolume struct {
	groupNode

	desc     store.Descriptor
	tree     *tree
	writable bool

	closeMu sync.Mutex
	closed  bool
}

func (v *memoryVolume) Descriptor() store.Descriptor {
	return v.desc.Clone()
}

// Close marks the volume closed. The shared tree stays in the driver for
// future opens. Closing twice reports ErrCloseFailed so double-close bugs
// in callers surface instead of passing silently.
func (v *memoryVolume) Close() error {
	v.closeMu.Lock()
	defer v.closeMu.Unlock()

	if v.closed {
		return &store.StoreError{
			Code:    store.ErrCloseFailed,
			Message: "volume already closed",
			Path:    v.desc.Path,
		}
	}
	v.closed = true
	return nil
}

// checkOpen rejects operations on closed volumes.
func (v *memoryVolume) checkOpen() error {
	v.closeMu.Lock()
	defer v.closeMu.Unlock()

	if v.closed {
		return &store.StoreError{
			Code:    store.ErrStaleHandle,
			Message: "volume is closed",
			Path:    v.desc.Path,
		}
	}
	return nil
}

// checkWritable rejects mutations on read-only volumes.
func (v *memoryVolume) checkWritable() error {
	if err := v.checkOpen(); err != nil {
		return err
	}
	if !v.writable {
		return &store.StoreError{
			Code:    store.ErrReadOnly,
			Message: "volume is read-only",
			Path:    v.desc.Path,
		}
	}
	return nil
}
