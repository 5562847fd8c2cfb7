package s3

import (
	"encoding/json"
	"fmt"

	"github.com/grovedata/grove/pkg/store"
)

// Node records are stored as JSON; dataset payloads are stored as raw
// objects and never pass through a codec.
//
// JSON is the pragmatic choice for the records: they are small, schema
// evolution is free, and bucket contents stay inspectable with any S3
// browser. The trade-off is that attribute values decode with JSON's
// default mapping, so numeric attributes come back as float64.

// nodeData is the stored form of a group or dataset record.
type nodeData struct {
	Kind  store.NodeKind `json:"kind"`
	DType store.DType    `json:"dtype,omitempty"`
	Shape []int64        `json:"shape,omitempty"`
	Attrs map[string]any `json:"attrs,omitempty"`
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
