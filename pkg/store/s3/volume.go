package s3

import (
	"sync"

	"github.com/grovedata/grove/pkg/store"
)

// s3Volume is one open of a bucket-stored volume. The embedded groupNode
// is the root group, so the volume satisfies store.Volume directly.
type s3Volume struct {
	groupNode

	driver   *S3Driver
	desc     store.Descriptor
	base     string
	writable bool

	closeMu sync.Mutex
	closed  bool
}

func (v *s3Volume) Descriptor() store.Descriptor {
	return v.desc.Clone()
}

// Close marks the volume closed. Objects stay in the bucket for future
// opens. Closing twice reports ErrCloseFailed so double-close bugs in
// callers surface instead of passing silently.
func (v *s3Volume) Close() error {
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

// checkOpen rejects operations on closed volumes or a closed driver.
func (v *s3Volume) checkOpen() error {
	if err := v.driver.checkOpen(); err != nil {
		return err
	}

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
func (v *s3Volume) checkWritable() error {
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
