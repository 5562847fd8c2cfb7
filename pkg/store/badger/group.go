package badger

import (
	"context"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/grovedata/grove/pkg/store"
)

// groupNode exposes one group of a persistent volume. It holds the open
// volume it was resolved through, so closed-volume and read-only checks
// apply to nodes obtained before the state change.
type groupNode struct {
	vol  *badgerVolume
	path string
}

func (g groupNode) Kind() store.NodeKind { return store.KindGroup }
func (g groupNode) Name() string         { return nameFromPath(g.path) }
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

	childPath := store.JoinPath(g.path, name)

	var child store.Node
	err := g.vol.driver.view(func(txn *badger.Txn) error {
		n, err := loadNode(txn, g.vol.volumeID, childPath)
		if err != nil {
			return err
		}
		child = g.wrap(n, childPath)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return child, nil
}

func (g groupNode) List(ctx context.Context) ([]store.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.vol.checkOpen(); err != nil {
		return nil, err
	}

	scanPrefix := keyChildScanPrefix(g.vol.volumeID, g.path)

	var entries []store.Entry
	err := g.vol.driver.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = scanPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		// Child keys iterate in byte order, so entries come out sorted
		// by name without an explicit sort.
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			name, ok := childNameFromKey(item.Key(), scanPrefix)
			if !ok {
				continue
			}

			var kind store.NodeKind
			err := item.Value(func(val []byte) error {
				kind = decodeKind(val)
				return nil
			})
			if err != nil {
				return err
			}

			entries = append(entries, store.Entry{Name: name, Kind: kind})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entries == nil {
		entries = []store.Entry{}
	}
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

	childPath := store.JoinPath(g.path, name)

	err := g.vol.driver.update(func(txn *badger.Txn) error {
		if err := checkAbsent(txn, g.vol.volumeID, childPath); err != nil {
			return err
		}

		encoded, err := encodeNodeData(&nodeData{Kind: store.KindGroup})
		if err != nil {
			return err
		}
		if err := txn.Set(keyNode(g.vol.volumeID, childPath), encoded); err != nil {
			return err
		}
		return txn.Set(keyChild(g.vol.volumeID, childPath), encodeKind(store.KindGroup))
	})
	if err != nil {
		return nil, err
	}

	return groupNode{vol: g.vol, path: childPath}, nil
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

	childPath := store.JoinPath(g.path, name)

	err := g.vol.driver.update(func(txn *badger.Txn) error {
		if err := checkAbsent(txn, g.vol.volumeID, childPath); err != nil {
			return err
		}

		encoded, err := encodeNodeData(&nodeData{
			Kind:  store.KindDataset,
			DType: spec.DType,
			Shape: spec.Shape,
		})
		if err != nil {
			return err
		}
		if err := txn.Set(keyNode(g.vol.volumeID, childPath), encoded); err != nil {
			return err
		}
		if err := txn.Set(keyChild(g.vol.volumeID, childPath), encodeKind(store.KindDataset)); err != nil {
			return err
		}
		// The payload key is written even when empty so a missing payload
		// key always means a missing node.
		return txn.Set(keyData(g.vol.volumeID, childPath), spec.Data)
	})
	if err != nil {
		return nil, err
	}

	return datasetNode{
		vol:   g.vol,
		path:  childPath,
		dtype: spec.DType,
		shape: append([]int64(nil), spec.Shape...),
	}, nil
}

func (g groupNode) Attr(ctx context.Context, name string) (any, bool, error) {
	return attrGet(ctx, g.vol, g.path, name)
}

func (g groupNode) Attrs(ctx context.Context) (map[string]any, error) {
	return attrAll(ctx, g.vol, g.path)
}

func (g groupNode) SetAttr(ctx context.Context, name string, value any) error {
	return attrSet(ctx, g.vol, g.path, name, value)
}

// wrap builds the typed view for a child node record.
func (g groupNode) wrap(n *nodeData, path string) store.Node {
	switch n.Kind {
	case store.KindGroup:
		return groupNode{vol: g.vol, path: path}
	case store.KindDataset:
		return datasetNode{
			vol:   g.vol,
			path:  path,
			dtype: n.DType,
			shape: append([]int64(nil), n.Shape...),
		}
	default:
		return opaqueNode{vol: g.vol, path: path}
	}
}

// loadNode reads and decodes the node record at path.
func loadNode(txn *badger.Txn, volumeID uuid.UUID, path string) (*nodeData, error) {
	item, err := txn.Get(keyNode(volumeID, path))
	if err == badger.ErrKeyNotFound {
		return nil, &store.StoreError{
			Code:    store.ErrNotFound,
			Message: "node does not exist",
			Path:    path,
		}
	}
	if err != nil {
		return nil, err
	}

	var n *nodeData
	err = item.Value(func(val []byte) error {
		decoded, decodeErr := decodeNodeData(val)
		if decodeErr != nil {
			return decodeErr
		}
		n = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// checkAbsent fails with ErrAlreadyExists when a node record exists at path.
func checkAbsent(txn *badger.Txn, volumeID uuid.UUID, path string) error {
	_, err := txn.Get(keyNode(volumeID, path))
	if err == nil {
		return &store.StoreError{
			Code:    store.ErrAlreadyExists,
			Message: "node already exists",
			Path:    path,
		}
	}
	if err != badger.ErrKeyNotFound {
		return err
	}
	return nil
}

// nameFromPath returns the last path component, or "" for the root.
func nameFromPath(path string) string {
	parts := store.SplitPath(path)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// attrGet, attrAll and attrSet implement the attribute operations shared by
// groups, datasets and opaque nodes. Attributes live inside the node record,
// so every operation is a load of that record and, for writes, a store back.

func attrGet(ctx context.Context, vol *badgerVolume, path, name string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := vol.checkOpen(); err != nil {
		return nil, false, err
	}

	var (
		value  any
		exists bool
	)
	err := vol.driver.view(func(txn *badger.Txn) error {
		n, err := loadNode(txn, vol.volumeID, path)
		if err != nil {
			return err
		}
		value, exists = n.Attrs[name]
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, exists, nil
}

func attrAll(ctx context.Context, vol *badgerVolume, path string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := vol.checkOpen(); err != nil {
		return nil, err
	}

	var out map[string]any
	err := vol.driver.view(func(txn *badger.Txn) error {
		n, err := loadNode(txn, vol.volumeID, path)
		if err != nil {
			return err
		}
		out = make(map[string]any, len(n.Attrs))
		for name, value := range n.Attrs {
			out[name] = value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func attrSet(ctx context.Context, vol *badgerVolume, path, name string, value any) error {
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

	return vol.driver.update(func(txn *badger.Txn) error {
		n, err := loadNode(txn, vol.volumeID, path)
		if err != nil {
			return err
		}
		if n.Attrs == nil {
			n.Attrs = make(map[string]any)
		}
		n.Attrs[name] = value

		encoded, err := encodeNodeData(n)
		if err != nil {
			return err
		}
		return txn.Set(keyNode(vol.volumeID, path), encoded)
	})
}
