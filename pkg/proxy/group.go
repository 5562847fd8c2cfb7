package proxy

import (
	"context"

	"github.com/grovedata/grove/internal/logger"
	"github.com/grovedata/grove/pkg/registry"
	"github.com/grovedata/grove/pkg/store"
)

// Group is a proxy for a group inside a volume: a root descriptor plus an
// internal path, nothing else. It never holds the resolved native group
// across operations; each one re-resolves the volume through the registry
// and walks the path again, which is what keeps the proxy valid across
// serialization and eviction.
type Group struct {
	file *File
	path string
}

// Path returns the group's internal path within the volume.
func (g *Group) Path() string {
	return g.path
}

// Name returns the last path segment, or "/" for the root group.
func (g *Group) Name() string {
	segments := store.SplitPath(g.path)
	if len(segments) == 0 {
		return "/"
	}
	return segments[len(segments)-1]
}

// RootDescriptor returns the descriptor of the volume this group lives in.
func (g *Group) RootDescriptor() store.Descriptor {
	return g.file.Descriptor()
}

// File returns the root proxy this group resolves through.
func (g *Group) File() *File {
	return g.file
}

// WithRegistry rebinds the owning file to reg. Returns the group for
// chaining.
func (g *Group) WithRegistry(reg *registry.Registry) *Group {
	g.file.WithRegistry(reg)
	return g
}

// Equal reports whether two group proxies denote the same node: same root
// descriptor, same internal path.
func (g *Group) Equal(other *Group) bool {
	if other == nil {
		return false
	}
	return g.path == other.path && g.file.desc.Equal(other.file.desc)
}

// Lookup resolves name relative to this group and classifies the result:
// groups come back as *Group, datasets as *Dataset, both carrying the same
// root descriptor with the internal path extended. Any other node kind is
// returned as the raw store.Node, unwrapped and unmanaged. Multi-segment
// names like "group1/dataset1" walk the hierarchy.
func (g *Group) Lookup(ctx context.Context, name string) (any, error) {
	vol, err := g.file.resolve(ctx)
	if err != nil {
		return nil, err
	}

	target := store.JoinPath(g.path, name)
	node, err := store.LookupPath(ctx, vol, target)
	if err != nil {
		return nil, err
	}
	return g.wrap(node, target), nil
}

// Group resolves name and requires it to be a group.
//
// Returns:
//   - error: ErrNotGroup when the name resolves to anything else
func (g *Group) Group(ctx context.Context, name string) (*Group, error) {
	result, err := g.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	child, ok := result.(*Group)
	if !ok {
		return nil, &store.StoreError{
			Code:    store.ErrNotGroup,
			Message: "node is not a group",
			Path:    store.JoinPath(g.path, name),
		}
	}
	return child, nil
}

// Dataset resolves name and requires it to be a dataset.
//
// Returns:
//   - error: ErrNotDataset when the name resolves to anything else
func (g *Group) Dataset(ctx context.Context, name string) (*Dataset, error) {
	result, err := g.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	child, ok := result.(*Dataset)
	if !ok {
		return nil, &store.StoreError{
			Code:    store.ErrNotDataset,
			Message: "node is not a dataset",
			Path:    store.JoinPath(g.path, name),
		}
	}
	return child, nil
}

// Entries lists the group's direct children.
func (g *Group) Entries(ctx context.Context) ([]store.Entry, error) {
	grp, err := g.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return grp.List(ctx)
}

// CreateGroup creates a child group and returns its proxy.
func (g *Group) CreateGroup(ctx context.Context, name string) (*Group, error) {
	grp, err := g.resolve(ctx)
	if err != nil {
		return nil, err
	}

	created, err := grp.CreateGroup(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Group{file: g.file, path: created.Path()}, nil
}

// CreateDataset creates a child dataset and returns its proxy.
func (g *Group) CreateDataset(ctx context.Context, name string, spec store.DatasetSpec) (*Dataset, error) {
	grp, err := g.resolve(ctx)
	if err != nil {
		return nil, err
	}

	created, err := grp.CreateDataset(ctx, name, spec)
	if err != nil {
		return nil, err
	}
	return &Dataset{file: g.file, path: created.Path()}, nil
}

// Attr returns the named attribute on this group.
func (g *Group) Attr(ctx context.Context, name string) (any, bool, error) {
	grp, err := g.resolve(ctx)
	if err != nil {
		return nil, false, err
	}
	return grp.Attr(ctx, name)
}

// Attrs returns all attributes on this group.
func (g *Group) Attrs(ctx context.Context) (map[string]any, error) {
	grp, err := g.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return grp.Attrs(ctx)
}

// SetAttr sets an attribute on this group.
func (g *Group) SetAttr(ctx context.Context, name string, value any) error {
	grp, err := g.resolve(ctx)
	if err != nil {
		return err
	}
	return grp.SetAttr(ctx, name, value)
}

// resolve re-acquires the volume and walks the internal path down to the
// native group backing this proxy.
func (g *Group) resolve(ctx context.Context) (store.Group, error) {
	vol, err := g.file.resolve(ctx)
	if err != nil {
		return nil, err
	}

	node, err := store.LookupPath(ctx, vol, g.path)
	if err != nil {
		return nil, err
	}

	grp, ok := node.(store.Group)
	if !ok {
		return nil, &store.StoreError{
			Code:    store.ErrNotGroup,
			Message: "path no longer names a group",
			Path:    g.path,
		}
	}
	return grp, nil
}

// wrap classifies a resolved node into its proxy form.
func (g *Group) wrap(node store.Node, path string) any {
	switch node.Kind() {
	case store.KindGroup:
		return &Group{file: g.file, path: path}
	case store.KindDataset:
		return &Dataset{file: g.file, path: path}
	default:
		logger.Debug("Passing through node %s unwrapped (kind %s)", path, node.Kind())
		return node
	}
}
