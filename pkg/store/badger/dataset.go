package badger

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/grovedata/grove/pkg/store"
)

// datasetNode exposes one dataset of a persistent volume.
//
// dtype and shape are read from the node record when the view is built.
// Both are fixed at creation time, so the snapshot can never go stale.
type datasetNode struct {
	vol   *badgerVolume
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

	var data []byte
	err := d.vol.driver.view(func(txn *badger.Txn) error {
		item, err := txn.Get(keyData(d.vol.volumeID, d.path))
		if err == badger.ErrKeyNotFound {
			return &store.StoreError{
				Code:    store.ErrNotFound,
				Message: "node does not exist",
				Path:    d.path,
			}
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
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

	return d.vol.driver.update(func(txn *badger.Txn) error {
		// Writing through a view onto a removed or truncated volume must
		// not resurrect the node, so the node record is checked first.
		if _, err := loadNode(txn, d.vol.volumeID, d.path); err != nil {
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

		return txn.Set(keyData(d.vol.volumeID, d.path), data)
	})
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

// opaqueNode covers stored members whose kind marker is neither group nor
// dataset, such as records written by a newer version of this package.
type opaqueNode struct {
	vol  *badgerVolume
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
