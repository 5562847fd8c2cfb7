package badger

import (
	"sync"

	"github.com/google/uuid"

	"github.com/grovedata/grove/pkg/store"
)

// badgerVolume is one open of a persistent volume. The embedded groupNode
// is the root group, so the volume satisfies store.Volume directly.
//
// volumeID pins the keyspace generation this open resolves against. A
// truncating open starts a fresh generation, so handles onto the old one
// see their nodes disappear rather than the new content.
type badgerVolume struct {
	groupNode

	driver   *BadgerDriver
	desc     store.Descriptor
	volumeID uuid.UUID
	writable bool

	closeMu sync.Mutex
	closed  bool
}

func (v *badgerVolume) Descriptor() store.Descriptor {
	return v.desc.Clone()
}

// Close marks the volume closed. The database stays open in the driver
// for future opens. Closing twice reports ErrCloseFailed so double-close
// bugs in callers surface instead of passing silently.
func (v *badgerVolume) Close() error {
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
func (v *badgerVolume) checkOpen() error {
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
func (v *badgerVolume) checkWritable() error {
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
