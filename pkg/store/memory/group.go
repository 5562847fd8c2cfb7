package memory

import (
	"context"
	"sort"

	"github.com/grovedata/grove/pkg/store"
)

// groupNode exposes one group of a volume tree. It holds the open volume it
// was resolved through, so closed-volume and read-only checks apply to nodes
// obtained before the state change.
type groupNode struct {
	vol  *memoryVolume
	node *node
	path string
}

func (g groupNode) Kind() store.NodeKind { return store.KindGroup }
func (g groupNode) Name() string         { return g.node.name }
func (g groupNode) Path() string         { return g.path }

func (g groupNode) Lookup(ctx context.Context, name string) (store.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.vol.checkOpen(); err != nil {
		return nil, err
	}
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}

	g.vol.tree.mu.RLock()
	defer g.vol.tree.mu.RUnlock()

	child, exists := g.node.children[name]
	if !exists {
		return nil, &store.StoreError{
			Code:    store.ErrNotFound,
			Message: "node does not exist",
			Path:    store.JoinPath(g.path, name),
		}
	}

	return g.wrap(child, name), nil
}

func (g groupNode) List(ctx context.Context) ([]store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.vol.checkOpen(); err != nil {
		return nil, err
	}

	g.vol.tree.mu.RLock()
	defer g.vol.tree.mu.RUnlock()

	entries := make([]store.Entry, 0, len(g.node.children))
	for name, child := range g.node.children {
		entries = append(entries, store.Entry{Name: name, Kind: child.kind})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (g groupNode) CreateGroup(ctx context.Context, name string) (store.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.vol.checkWritable(); err != nil {
		return nil, err
	}
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}

	g.vol.tree.mu.Lock()
	defer g.vol.tree.mu.Unlock()

	if _, exists := g.node.children[name]; exists {
		return nil, &store.StoreError{
			Code:    store.ErrAlreadyExists,
			Message: "node already exists",
			Path:    store.JoinPath(g.path, name),
		}
	}

	child := &node{
		name:     name,
		kind:     store.KindGroup,
		children: make(map[string]*node),
		attrs:    make(map[string]any),
	}
	g.node.children[name] = child

	return groupNode{vol: g.vol, node: child, path: store.JoinPath(g.path, name)}, nil
}

func (g groupNode) CreateDataset(ctx context.Context, name string, spec store.DatasetSpec) (store.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.vol.checkWritable(); err != nil {
		return nil, err
	}
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	g.vol.tree.mu.Lock()
	defer g.vol.tree.mu.Unlock()

	if _, exists := g.node.children[name]; exists {
		return nil, &store.StoreError{
			Code:    store.ErrAlreadyExists,
			Message: "node already exists",
			Path:    store.JoinPath(g.path, name),
		}
	}

	child := &node{
		name:  name,
		kind:  store.KindDataset,
		attrs: make(map[string]any),
		dtype: spec.DType,
		shape: append([]int64(nil), spec.Shape...),
		data:  append([]byte(nil), spec.Data...),
	}
	g.node.children[name] = child

	return datasetNode{vol: g.vol, node: child, path: store.JoinPath(g.path, name)}, nil
}

func (g groupNode) Attr(ctx context.Context, name string) (any, bool, error) {
	return attrGet(ctx, g.vol, g.node, name)
}

func (g groupNode) Attrs(ctx context.Context) (map[string]any, error) {
	return attrAll(ctx, g.vol, g.node)
}

func (g groupNode) SetAttr(ctx context.Context, name string, value any) error {
	return attrSet(ctx, g.vol, g.node, name, value)
}

// wrap builds the typed view for a child node. Tree mutex held by caller.
func (g groupNode) wrap(child *node, name string) store.Node {
	path := store.JoinPath(g.path, name)
	switch child.kind {
	case store.KindGroup:
		return groupNode{vol: g.vol, node: child, path: path}
	case store.KindDataset:
		return datasetNode{vol: g.vol, node: child, path: path}
	default:
		return opaqueNode{vol: g.vol, node: child, path: path}
	}
}

// attrGet, attrAll and attrSet implement the attribute operations shared by
// groups, datasets and opaque nodes.

func attrGet(ctx context.Context, vol *memoryVolume, n *node, name string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := vol.checkOpen(); err != nil {
		return nil, false, err
	}

	vol.tree.mu.RLock()
	defer vol.tree.mu.RUnlock()

	value, exists := n.attrs[name]
	return value, exists, nil
}

func attrAll(ctx context.Context, vol *memoryVolume, n *node) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := vol.checkOpen(); err != nil {
		return nil, err
	}

	vol.tree.mu.RLock()
	defer vol.tree.mu.RUnlock()

	out := make(map[string]any, len(n.attrs))
	for name, value := range n.attrs {
		out[name] = value
	}
	return out, nil
}

func attrSet(ctx context.Context, vol *memoryVolume, n *node, name string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := vol.checkWritable(); err != nil {
		return err
	}
	if name == "" {
		return &store.StoreError{
			Code:    store.ErrInvalidArgument,
			Message: "empty attribute name",
		}
	}

	vol.tree.mu.Lock()
	defer vol.tree.mu.Unlock()

	n.attrs[name] = value
	return nil
}
