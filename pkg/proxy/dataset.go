package proxy

import (
	"context"

	"github.com/grovedata/grove/pkg/registry"
	"github.com/grovedata/grove/pkg/store"
)

// Dataset is a proxy for a dataset inside a volume. Like Group it is a pure
// relation: every operation re-acquires the volume through the registry and
// walks the internal path before delegating, so a dataset proxy obtained
// before an eviction, a release, or a serialization round-trip keeps
// working afterwards. The cost is one lookup per operation, cheap next to a
// native open.
type Dataset struct {
	file *File
	path string
}

// Path returns the dataset's internal path within the volume.
func (d *Dataset) Path() string {
	return d.path
}

// Name returns the last path segment.
func (d *Dataset) Name() string {
	segments := store.SplitPath(d.path)
	if len(segments) == 0 {
		return "/"
	}
	return segments[len(segments)-1]
}

// RootDescriptor returns the descriptor of the volume this dataset lives in.
func (d *Dataset) RootDescriptor() store.Descriptor {
	return d.file.Descriptor()
}

// File returns the root proxy this dataset resolves through.
func (d *Dataset) File() *File {
	return d.file
}

// WithRegistry rebinds the owning file to reg. Returns the dataset for
// chaining.
func (d *Dataset) WithRegistry(reg *registry.Registry) *Dataset {
	d.file.WithRegistry(reg)
	return d
}

// Equal reports whether two dataset proxies denote the same node.
func (d *Dataset) Equal(other *Dataset) bool {
	if other == nil {
		return false
	}
	return d.path == other.path && d.file.desc.Equal(other.file.desc)
}

// Shape returns the dataset's dimensions.
func (d *Dataset) Shape(ctx context.Context) ([]int64, error) {
	ds, err := d.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Shape(), nil
}

// DType returns the dataset's element type.
func (d *Dataset) DType(ctx context.Context) (store.DType, error) {
	ds, err := d.resolve(ctx)
	if err != nil {
		return "", err
	}
	return ds.DType(), nil
}

// Len returns the length of the dataset's leading dimension.
func (d *Dataset) Len(ctx context.Context) (int64, error) {
	ds, err := d.resolve(ctx)
	if err != nil {
		return 0, err
	}
	return ds.Len(), nil
}

// Read returns the dataset's raw contents.
func (d *Dataset) Read(ctx context.Context) ([]byte, error) {
	ds, err := d.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Read(ctx)
}

// Write replaces the dataset's raw contents.
func (d *Dataset) Write(ctx context.Context, data []byte) error {
	ds, err := d.resolve(ctx)
	if err != nil {
		return err
	}
	return ds.Write(ctx, data)
}

// Attr returns the named attribute on this dataset.
func (d *Dataset) Attr(ctx context.Context, name string) (any, bool, error) {
	ds, err := d.resolve(ctx)
	if err != nil {
		return nil, false, err
	}
	return ds.Attr(ctx, name)
}

// Attrs returns all attributes on this dataset.
func (d *Dataset) Attrs(ctx context.Context) (map[string]any, error) {
	ds, err := d.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Attrs(ctx)
}

// SetAttr sets an attribute on this dataset.
func (d *Dataset) SetAttr(ctx context.Context, name string, value any) error {
	ds, err := d.resolve(ctx)
	if err != nil {
		return err
	}
	return ds.SetAttr(ctx, name, value)
}

// resolve re-acquires the volume and walks the internal path down to the
// native dataset backing this proxy.
func (d *Dataset) resolve(ctx context.Context) (store.Dataset, error) {
	vol, err := d.file.resolve(ctx)
	if err != nil {
		return nil, err
	}

	node, err := store.LookupPath(ctx, vol, d.path)
	if err != nil {
		return nil, err
	}

	ds, ok := node.(store.Dataset)
	if !ok {
		return nil, &store.StoreError{
			Code:    store.ErrNotDataset,
			Message: "path no longer names a dataset",
			Path:    d.path,
		}
	}
	return ds, nil
}
