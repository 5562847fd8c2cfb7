package s3

import (
	"context"

	"github.com/grovedata/grove/pkg/store"
)

// datasetNode exposes one dataset of a bucket-stored volume.
//
// dtype and shape are read from the node record when the view is built.
// Both are fixed at creation time, so the snapshot can never go stale.
type datasetNode struct {
	vol   *s3Volume
	path  string
	dtype store.DType
	shape []int64
}

func (d datasetNode) Kind() store.NodeKind { return store.KindDataset }
func (d datasetNode) Name() string         { return nameFromPath(d.path) }
func (d datasetNode) Path() string         { return d.path }

func (d datasetNode) Shape() []int64 {
	return append([]int64(nil), d.shape...)
}

func (d datasetNode) DType() store.DType {
	return d.dtype
}

func (d datasetNode) Len() int64 {
	if len(d.shape) == 0 {
		return 0
	}
	return d.shape[0]
}

func (d datasetNode) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.vol.checkOpen(); err != nil {
		return nil, err
	}

	data, found, err := d.vol.driver.getObject(ctx, dataKey(d.vol.base, d.path))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &store.StoreError{
			Code:    store.ErrNotFound,
			Message: "node does not exist",
			Path:    d.path,
		}
	}
	return data, nil
}

func (d datasetNode) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.vol.checkWritable(); err != nil {
		return err
	}

	// Writing through a view onto a truncated or removed volume must not
	// resurrect the node, so the node record is checked first.
	if _, err := loadNode(ctx, d.vol, d.path); err != nil {
		return err
	}

	if size, fixed := d.dtype.ElemSize(); fixed {
		if want := size * store.NumElements(d.shape); int64(len(data)) != want {
			return &store.StoreError{
				Code:    store.ErrInvalidArgument,
				Message: "payload length does not match dataset shape",
				Path:    d.path,
			}
		}
	}

	return d.vol.driver.putObject(ctx, dataKey(d.vol.base, d.path), data)
}

func (d datasetNode) Attr(ctx context.Context, name string) (any, bool, error) {
	return attrGet(ctx, d.vol, d.path, name)
}

func (d datasetNode) Attrs(ctx context.Context) (map[string]any, error) {
	return attrAll(ctx, d.vol, d.path)
}

func (d datasetNode) SetAttr(ctx context.Context, name string, value any) error {
	return attrSet(ctx, d.vol, d.path, name, value)
}

// opaqueNode covers stored members whose record kind is neither group nor
// dataset, such as records written by a newer version of this package.
type opaqueNode struct {
	vol  *s3Volume
	path string
}

func (o opaqueNode) Kind() store.NodeKind { return store.KindOpaque }
func (o opaqueNode) Name() string         { return nameFromPath(o.path) }
func (o opaqueNode) Path() string         { return o.path }

func (o opaqueNode) Attr(ctx context.Context, name string) (any, bool, error) {
	return attrGet(ctx, o.vol, o.path, name)
}

func (o opaqueNode) Attrs(ctx context.Context) (map[string]any, error) {
	return attrAll(ctx, o.vol, o.path)
}

func (o opaqueNode) SetAttr(ctx context.Context, name string, value any) error {
	return attrSet(ctx, o.vol, o.path, name, value)
}
