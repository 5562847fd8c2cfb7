package store

import (
	"context"
)

// ============================================================================
// Driver Interface
// ============================================================================

// Driver opens volumes of one storage backend.
//
// A driver is the factory for live volumes: it translates an opaque
// Descriptor (path, mode, extra parameters) into an open Volume backed by
// real storage. Opening is assumed to be expensive (backend connections,
// index loads, bucket probes), which is why callers go through the handle
// registry instead of calling Open directly.
//
// Design Principles:
//   - Backend-agnostic: callers never see memory/badger/s3 specifics
//   - Consistent error handling: operations return StoreError for domain errors
//   - Context-aware: Open respects context cancellation and timeouts
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Driver interface {
	// Name returns the backend name ("memory", "badger", "s3").
	Name() string

	// Open opens the volume identified by desc.
	//
	// Mode semantics:
	//   - ModeRead, ModeReadWrite: the volume must already exist (ErrNotFound)
	//   - ModeCreate: create the volume, truncating any existing content
	//   - ModeCreateExclusive: create the volume, ErrAlreadyExists if present
	//   - ModeAppend: open read-write, creating the volume if missing
	//
	// Each successful Open returns an independent Volume whose Close releases
	// only that volume's resources. Two opens of the same path observe the
	// same underlying stored tree.
	//
	// Returns:
	//   - Volume: the open volume rooted at its top-level group
	//   - error: ErrInvalidDescriptor, ErrNotFound, ErrAlreadyExists,
	//     ErrOpenFailed, or context cancellation errors
	Open(ctx context.Context, desc Descriptor) (Volume, error)

	// Close releases driver-wide resources (database handles, clients).
	// Volumes opened by this driver must not be used afterwards.
	Close() error
}

// ============================================================================
// Volume and Node Interfaces
// ============================================================================

// Volume is an open hierarchical data file: a tree of named groups with
// typed datasets at the leaves. The volume itself is its root group.
//
// A Volume is owned by exactly one registry handle (or by the caller that
// opened it uncached). Close is idempotent at the registry layer but
// drivers may report ErrCloseFailed on a second close.
type Volume interface {
	Group

	// Descriptor returns the descriptor this volume was opened with.
	Descriptor() Descriptor

	// Close releases the native resources behind this volume.
	Close() error
}

// Node is any named member of a volume tree.
//
// Attribute values are scalar metadata (strings, numbers, booleans) attached
// to groups and datasets alike. Backends that persist attributes may
// normalize numeric values to float64 on read.
type Node interface {
	// Kind reports whether this node is a group, a dataset, or an opaque
	// backend-specific object that the proxy layer passes through untouched.
	Kind() NodeKind

	// Name is the final path component ("" for the root group).
	Name() string

	// Path is the absolute path inside the volume ("/" for the root,
	// "/a/b" for nested nodes).
	Path() string

	// Attr reads a single attribute. The second return reports presence.
	Attr(ctx context.Context, name string) (any, bool, error)

	// Attrs returns a copy of all attributes on this node.
	Attrs(ctx context.Context) (map[string]any, error)

	// SetAttr creates or replaces an attribute.
	//
	// Returns:
	//   - error: ErrReadOnly on read-only volumes, ErrInvalidArgument for
	//     empty names, or backend I/O errors
	SetAttr(ctx context.Context, name string, value any) error
}

// Group is a named container of child nodes.
type Group interface {
	Node

	// Lookup resolves a single child name within this group.
	//
	// Returns:
	//   - Node: the child, concrete kind per Node.Kind
	//   - error: ErrNotFound if the name does not exist, ErrInvalidArgument
	//     for empty or slash-containing names, or context errors
	Lookup(ctx context.Context, name string) (Node, error)

	// List returns all direct children sorted by name.
	List(ctx context.Context) ([]Entry, error)

	// CreateGroup creates an empty child group.
	//
	// Returns:
	//   - error: ErrAlreadyExists if the name is taken, ErrReadOnly on
	//     read-only volumes, ErrInvalidArgument for bad names
	CreateGroup(ctx context.Context, name string) (Group, error)

	// CreateDataset creates a child dataset with the given shape, element
	// type, and initial contents.
	CreateDataset(ctx context.Context, name string, spec DatasetSpec) (Dataset, error)
}

// Dataset is a typed leaf holding an n-dimensional block of elements.
//
// Whole-buffer access only: Read returns the complete raw payload and Write
// replaces it. Slicing, element conversion, and chunked I/O are out of scope
// for this layer.
type Dataset interface {
	Node

	// Shape returns the dimensions. A copy; callers may modify it.
	Shape() []int64

	// DType returns the element type tag.
	DType() DType

	// Len returns the length of the leading dimension (0 for scalars).
	Len() int64

	// Read returns the complete raw contents.
	Read(ctx context.Context) ([]byte, error)

	// Write replaces the complete raw contents.
	//
	// Returns:
	//   - error: ErrReadOnly on read-only volumes, ErrInvalidArgument if the
	//     payload length conflicts with a fixed-size element type and shape
	Write(ctx context.Context, data []byte) error
}

// Entry is one row of a group listing.
type Entry struct {
	// Name is the child's name within its parent.
	Name string `json:"name"`

	// Kind is the child's node kind.
	Kind NodeKind `json:"kind"`
}

// ============================================================================
// Kinds and Element Types
// ============================================================================

// NodeKind classifies the members of a volume tree.
type NodeKind int

const (
	// KindGroup is a container of named children.
	KindGroup NodeKind = iota

	// KindDataset is a typed leaf.
	KindDataset

	// KindOpaque is a backend object that is neither; the proxy layer
	// returns such nodes unwrapped.
	KindOpaque
)

func (k NodeKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindDataset:
		return "dataset"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// DType is a dataset element type tag. Tags are stored verbatim by backends;
// no conversion between tags is performed anywhere in this module.
type DType string

const (
	DTypeInt8    DType = "int8"
	DTypeInt16   DType = "int16"
	DTypeInt32   DType = "int32"
	DTypeInt64   DType = "int64"
	DTypeUint8   DType = "uint8"
	DTypeUint16  DType = "uint16"
	DTypeUint32  DType = "uint32"
	DTypeUint64  DType = "uint64"
	DTypeFloat32 DType = "float32"
	DTypeFloat64 DType = "float64"
	DTypeString  DType = "string"
	DTypeBytes   DType = "bytes"
)

// Valid reports whether t is one of the known element type tags.
func (t DType) Valid() bool {
	switch t {
	case DTypeInt8, DTypeInt16, DTypeInt32, DTypeInt64,
		DTypeUint8, DTypeUint16, DTypeUint32, DTypeUint64,
		DTypeFloat32, DTypeFloat64, DTypeString, DTypeBytes:
		return true
	}
	return false
}

// ElemSize returns the fixed byte size of one element, or (0, false) for
// variable-size types (string, bytes).
func (t DType) ElemSize() (int64, bool) {
	switch t {
	case DTypeInt8, DTypeUint8:
		return 1, true
	case DTypeInt16, DTypeUint16:
		return 2, true
	case DTypeInt32, DTypeUint32, DTypeFloat32:
		return 4, true
	case DTypeInt64, DTypeUint64, DTypeFloat64:
		return 8, true
	}
	return 0, false
}

// DatasetSpec describes a dataset at creation time.
type DatasetSpec struct {
	// DType is the element type tag. Required.
	DType DType `json:"dtype"`

	// Shape holds the dimensions. Empty means scalar.
	Shape []int64 `json:"shape"`

	// Data is the initial raw payload. May be nil for an empty dataset.
	Data []byte `json:"data,omitempty"`
}

// Validate checks the spec for structural problems.
func (s DatasetSpec) Validate() error {
	if !s.DType.Valid() {
		return &StoreError{
			Code:    ErrInvalidArgument,
			Message: "unknown dataset element type " + string(s.DType),
		}
	}

	for _, dim := range s.Shape {
		if dim < 0 {
			return &StoreError{
				Code:    ErrInvalidArgument,
				Message: "negative dataset dimension",
			}
		}
	}

	if size, fixed := s.DType.ElemSize(); fixed && s.Data != nil {
		if want := size * NumElements(s.Shape); int64(len(s.Data)) != want {
			return &StoreError{
				Code:    ErrInvalidArgument,
				Message: "dataset payload length does not match shape",
			}
		}
	}

	return nil
}

// NumElements returns the product of the dimensions (1 for a scalar shape).
func NumElements(shape []int64) int64 {
	n := int64(1)
	for _, dim := range shape {
		n *= dim
	}
	return n
}
