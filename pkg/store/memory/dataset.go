package memory

import (
	"context"

	"github.com/grovedata/grove/pkg/store"
)

// datasetNode exposes one dataset of a volume tree.
type datasetNode struct {
	vol  *memoryVolume
	node *node
	path string
}

func (d datasetNode) Kind() store.NodeKind { return store.KindDataset }
func (d datasetNode) Name() string         { return d.node.name }
func (d datasetNode) Path() string         { return d.path }

func (d datasetNode) Shape() []int64 {
	d.vol.tree.mu.RLock()
	defer d.vol.tree.mu.RUnlock()

	return append([]int64(nil), d.node.shape...)
}

func (d datasetNode) DType() store.DType {
	return d.node.dtype
}

func (d datasetNode) Len() int64 {
	d.vol.tree.mu.RLock()
	defer d.vol.tree.mu.RUnlock()

	if len(d.node.shape) == 0 {
		return 0
	}
	return d.node.shape[0]
}

func (d datasetNode) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.vol.checkOpen(); err != nil {
		return nil, err
	}

	d.vol.tree.mu.RLock()
	defer d.vol.tree.mu.RUnlock()

	return append([]byte(nil), d.node.data...), nil
}

func (d datasetNode) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.vol.checkWritable(); err != nil {
		return err
	}

	d.vol.tree.mu.Lock()
	defer d.vol.tree.mu.Unlock()

	if size, fixed := d.node.dtype.ElemSize(); fixed {
		if want := size * store.NumElements(d.node.shape); int64(len(data)) != want {
			return &store.StoreError{
				Code:    store.ErrInvalidArgument,
				Message: "payload length does not match dataset shape",
				Path:    d.path,
			}
		}
	}

	d.node.data = append([]byte(nil), data...)
	return nil
}

func (d datasetNode) Attr(ctx context.Context, name string) (any, bool, error) {
	return attrGet(ctx, d.vol, d.node, name)
}

func (d datasetNode) Attrs(ctx context.Context) (map[string]any, error) {
	return attrAll(ctx, d.vol, d.node)
}

func (d datasetNode) SetAttr(ctx context.Context, name string, value any) error {
	return attrSet(ctx, d.vol, d.node, name, value)
}

// opaqueNode covers tree members that are neither groups nor datasets.
// The memory backend never creates them itself, but the kind is part of the
// contract and other backends may surface such nodes.
type opaqueNode struct {
	vol  *memoryVolume
	node *node
	path string
}

func (o opaqueNode) Kind() store.NodeKind { return store.KindOpaque }
func (o opaqueNode) Name() string         { return o.node.name }
func (o opaqueNode) Path() string         { return o.path }

func (o opaqueNode) Attr(ctx context.Context, name string) (any, bool, error) {
	return attrGet(ctx, o.vol, o.node, name)
}

func (o opaqueNode) Attrs(ctx context.Context) (map[string]any, error) {
	return attrAll(ctx, o.vol, o.node)
}

func (o opaqueNode) SetAttr(ctx context.Context, name string, value any) error {
	return attrSet(ctx, o.vol, o.node, name, value)
}
