package badger

import (
	"strings"

	"github.com/google/uuid"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so we use prefixed keys to organize different
// data types into logical namespaces. This design:
//   - Prevents key collisions between different data types
//   - Enables efficient range scans (e.g., all children of a group)
//   - Makes the database structure self-documenting
//
// Volume-ID Indirection:
//
// Every volume is assigned a UUID v4 at creation, and all of its node keys
// embed that ID rather than the volume path. Truncating reopens (mode "w")
// simply assign a fresh ID: the new tree starts empty and the old keyspace
// is dropped in one prefix sweep, without touching any other volume.
//
// Key Namespace Prefixes:
//
// Data Type       Prefix  Key Format                    Value Type
// =========================================================================
// Volume Data     "v:"    v:<volumePath>                volumeData (JSON)
// Node Data       "n:"    n:<volumeID>:<nodePath>       nodeData (JSON)
// Children Map    "c:"    c:<volumeID>:<nodePath>       node kind (1 byte)
// Dataset Bytes   "d:"    d:<volumeID>:<nodePath>       raw data (binary)
//
// Key Design Rationale:
//
// 1. Volume Data (v:)
//    - One entry per volume, keyed by the caller-visible path
//    - Stores the volume's UUID and creation time
//    - Point lookup on every open: O(1)
//
// 2. Node Data (n:)
//    - One entry per group/dataset, keyed by full internal path
//    - Stores kind, element type, shape, and attributes
//    - Point lookup by path: O(1); paths never contain the list separator
//      problem because listing goes through the children map
//
// 3. Children Map (c:)
//    - Denormalized: one entry per node under its FULL internal path
//    - Listing a group scans the prefix "c:<id>:<groupPath>/" and keeps
//      entries whose remainder has no further "/": direct children only
//    - Badger iterates keys in byte order, so listings come back sorted
//      by name without an extra sort
//
// 4. Dataset Bytes (d:)
//    - Raw dataset payload, stored as-is
//    - Kept out of the node JSON so attribute updates never rewrite data

const (
	// prefixVolume is the key prefix for volume records.
	prefixVolume = "v:"

	// prefixNode is the key prefix for node records.
	prefixNode = "n:"

	// prefixChild is the key prefix for the denormalized children map.
	prefixChild = "c:"

	// prefixData is the key prefix for raw dataset payloads.
	prefixData = "d:"
)

// keyVolume generates the key for a volume record.
//
// Format: "v:<volumePath>"
func keyVolume(path string) []byte {
	return []byte(prefixVolume + path)
}

// keyNode generates the key for a node record.
//
// Format: "n:<volumeID>:<nodePath>"
func keyNode(volumeID uuid.UUID, path string) []byte {
	return []byte(prefixNode + volumeID.String() + ":" + path)
}

// keyChild generates the children-map key for a node.
//
// Format: "c:<volumeID>:<nodePath>"
func keyChild(volumeID uuid.UUID, path string) []byte {
	return []byte(prefixChild + volumeID.String() + ":" + path)
}

// keyChildScanPrefix generates the prefix that covers all descendants of a
// group in the children map. Direct children are the matches whose key
// remainder contains no further slash.
func keyChildScanPrefix(volumeID uuid.UUID, groupPath string) []byte {
	prefix := prefixChild + volumeID.String() + ":"
	if groupPath == "/" {
		return []byte(prefix + "/")
	}
	return []byte(prefix + groupPath + "/")
}

// keyData generates the key for a dataset's raw payload.
//
// Format: "d:<volumeID>:<nodePath>"
func keyData(volumeID uuid.UUID, path string) []byte {
	return []byte(prefixData + volumeID.String() + ":" + path)
}

// volumeKeyspacePrefixes returns the prefixes holding every node, child and
// data record of a volume ID. Used to drop a volume's keyspace after a
// truncating reopen or a removal.
func volumeKeyspacePrefixes(volumeID uuid.UUID) [][]byte {
	id := volumeID.String()
	return [][]byte{
		[]byte(prefixNode + id + ":"),
		[]byte(prefixChild + id + ":"),
		[]byte(prefixData + id + ":"),
	}
}

// childNameFromKey extracts the direct-child name from a children-map key,
// given the scan prefix it matched. Returns false for deeper descendants.
func childNameFromKey(key, scanPrefix []byte) (string, bool) {
	remainder := string(key[len(scanPrefix):])
	if remainder == "" || strings.Contains(remainder, "/") {
		return "", false
	}
	return remainder, true
}
