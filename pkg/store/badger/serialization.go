package badger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/grovedata/grove/pkg/store"
)

// Serialization Strategy
// ======================
//
// BadgerDB stores raw bytes, so structured records are serialized before
// storage. Two strategies, by data type:
//
// 1. JSON Encoding (Complex Types)
//    - Volume records, node records (kind, dtype, shape, attributes)
//    - Human-readable, flexible schema evolution, easy debugging
//    - Caveat: numeric attribute values decode as float64, JSON's only
//      number type; callers that need exact integer attributes should store
//      them as strings
//
// 2. Raw Bytes (Dataset Payloads, Kind Markers)
//    - Dataset payloads are opaque to the store and kept verbatim
//    - Children-map values are a single kind byte, enough for listings
//      without decoding the node record

// volumeData is the stored form of a volume record.
type volumeData struct {
	// ID namespaces all of the volume's node keys.
	ID uuid.UUID `json:"id"`

	// CreatedAt records when this tree generation was created. A truncating
	// reopen resets it along with the ID.
	CreatedAt time.Time `json:"created_at"`
}

// nodeData is the stored form of a group or dataset record.
type nodeData struct {
	Kind  store.NodeKind `json:"kind"`
	DType store.DType    `json:"dtype,omitempty"`
	Shape []int64        `json:"shape,omitempty"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

func encodeVolumeData(v *volumeData) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode volume record: %w", err)
	}
	return data, nil
}

func decodeVolumeData(data []byte) (*volumeData, error) {
	var v volumeData
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode volume record: %w", err)
	}
	return &v, nil
}

func encodeNodeData(n *nodeData) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to encode node record: %w", err)
	}
	return data, nil
}

func decodeNodeData(data []byte) (*nodeData, error) {
	var n nodeData
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to decode node record: %w", err)
	}
	return &n, nil
}

func encodeKind(kind store.NodeKind) []byte {
	return []byte{byte(kind)}
}

func decodeKind(data []byte) store.NodeKind {
	if len(data) != 1 {
		return store.KindOpaque
	}
	return store.NodeKind(data[0])
}
