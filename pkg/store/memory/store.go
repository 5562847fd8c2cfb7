package memory

import (
	"context"
	"sync"

	"github.com/grovedata/grove/pkg/store"
)

// MemoryDriver implements store.Driver using in-memory storage.
//
// This implementation provides fully functional volumes backed by in-memory
// data structures. It is suitable for:
//   - Testing and development environments
//   - Ephemeral data where persistence is not required
//   - Exercising the registry and proxy layers without external backends
//
// Thread Safety:
// The driver map is protected by its own mutex, and every volume tree is
// protected by a per-tree read-write mutex, making the driver safe for
// concurrent access from multiple goroutines.
//
// Storage Model:
//
// The driver keeps one tree per volume path. Opening the same path twice
// returns two independent Volume values sharing the same underlying tree,
// so writes through one open are visible through the other. ModeCreate
// replaces the stored tree; volumes opened before the truncation keep their
// detached old tree until closed.
type MemoryDriver struct {
	mu      sync.Mutex
	volumes map[string]*tree
}

// NewMemoryDriver creates an empty in-memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		volumes: make(map[string]*tree),
	}
}

// Name returns the backend name.
func (d *MemoryDriver) Name() string {
	return "memory"
}

// Open opens or creates the volume identified by desc.
func (d *MemoryDriver) Open(ctx context.Context, desc store.Descriptor) (store.Volume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, exists := d.volumes[desc.Path]

	var t *tree
	switch desc.Mode {
	case store.ModeRead, store.ModeReadWrite:
		if !exists {
			return nil, &store.StoreError{
				Code:    store.ErrNotFound,
				Message: "volume does not exist",
				Path:    desc.Path,
			}
		}
		t = existing

	case store.ModeCreate:
		t = newTree()
		d.volumes[desc.Path] = t

	case store.ModeCreateExclusive:
		if exists {
			return nil, &store.StoreError{
				Code:    store.ErrAlreadyExists,
				Message: "volume already exists",
				Path:    desc.Path,
			}
		}
		t = newTree()
		d.volumes[desc.Path] = t

	case store.ModeAppend:
		if exists {
			t = existing
		} else {
			t = newTree()
			d.volumes[desc.Path] = t
		}
	}

	vol := &memoryVolume{
		desc:     desc.Clone(),
		tree:     t,
		writable: desc.Mode.Writable(),
	}
	vol.groupNode = groupNode{vol: vol, node: t.root, path: "/"}
	return vol, nil
}

// Close discards all stored trees. Volumes opened from this driver must not
// be used afterwards.
func (d *MemoryDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.volumes = make(map[string]*tree)
	return nil
}

// Remove deletes a stored volume tree. Open volumes keep their detached
// tree until closed.
func (d *MemoryDriver) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.volumes[path]; !exists {
		return &store.StoreError{
			Code:    store.ErrNotFound,
			Message: "volume does not exist",
			Path:    path,
		}
	}
	delete(d.volumes, path)
	return nil
}

// tree is the shared state behind all opens of one volume path.
type tree struct {
	mu   sync.RWMutex
	root *node
}

func newTree() *tree {
	return &tree{
		root: &node{
			kind:     store.KindGroup,
			children: make(map[string]*node),
			attrs:    make(map[string]any),
		},
	}
}

// node is one member of a volume tree, guarded by the owning tree's mutex.
type node struct {
	name     string
	kind     store.NodeKind
	children map[string]*node
	attrs    map[string]any

	// dataset fields
	dtype store.DType
	shape []int64
	data  []byte
}
