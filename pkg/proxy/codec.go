package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"

	"github.com/grovedata/grove/pkg/store"
)

// Serialized proxies carry descriptors, never live state: a file persists
// its open descriptor plus the bypass flag, a group or dataset persists the
// root descriptor plus its internal path. Decoding rebuilds an unbound
// proxy that re-acquires through a registry on first use, so reconstruction
// deduplicates against live handles. The bypass flag is not inherited by
// nested proxies: a dataset cut out of a bypassed file reconstructs as a
// cache-managed one.
//
// Two encodings are provided per type: JSON for human-readable interchange,
// and gob whose payload is XDR so the binary form stays stable across
// releases.

// filePayload is the wire form of a root proxy.
type filePayload struct {
	Path      string        `json:"path"`
	Mode      string        `json:"mode"`
	Extra     []store.Param `json:"extra,omitempty"`
	SkipCache bool          `json:"skip_cache,omitempty"`
}

// nodePayload is the wire form of a group or dataset proxy.
type nodePayload struct {
	Root         store.Descriptor `json:"root"`
	InternalPath string           `json:"internal_path"`
}

// ============================================================================
// File
// ============================================================================

func (f *File) payload() filePayload {
	return filePayload{
		Path:      f.desc.Path,
		Mode:      string(f.desc.Mode),
		Extra:     f.desc.Clone().Extra,
		SkipCache: f.skipCache,
	}
}

func (f *File) fromPayload(payload filePayload) error {
	desc := store.Descriptor{
		Path:  payload.Path,
		Mode:  store.Mode(payload.Mode),
		Extra: payload.Extra,
	}
	if err := desc.Validate(); err != nil {
		return err
	}

	f.desc = desc
	f.skipCache = payload.SkipCache
	f.reg = nil
	f.last = nil
	f.closed = false
	return nil
}

// MarshalJSON encodes the file's open descriptor and bypass flag.
func (f *File) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.payload())
}

// UnmarshalJSON decodes a file proxy. The result is unbound and unopened;
// the volume is acquired on first use.
func (f *File) UnmarshalJSON(data []byte) error {
	var payload filePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to decode file payload: %w", err)
	}
	return f.fromPayload(payload)
}

// GobEncode encodes the file's descriptor as an XDR payload.
func (f *File) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, f.payload()); err != nil {
		return nil, fmt.Errorf("failed to encode file payload: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode decodes an XDR file payload. The result is unbound and
// unopened.
func (f *File) GobDecode(data []byte) error {
	var payload filePayload
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &payload); err != nil {
		return fmt.Errorf("failed to decode file payload: %w", err)
	}
	return f.fromPayload(payload)
}

// ============================================================================
// Group
// ============================================================================

func (g *Group) payload() nodePayload {
	return nodePayload{
		Root:         g.file.Descriptor(),
		InternalPath: g.path,
	}
}

func (g *Group) fromPayload(payload nodePayload) error {
	if err := payload.Root.Validate(); err != nil {
		return err
	}

	path := payload.InternalPath
	if path == "" {
		path = "/"
	}

	g.file = &File{desc: payload.Root.Clone()}
	g.path = path
	return nil
}

// MarshalJSON encodes the root descriptor and internal path.
func (g *Group) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.payload())
}

// UnmarshalJSON decodes a group proxy bound to no registry.
func (g *Group) UnmarshalJSON(data []byte) error {
	var payload nodePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to decode group payload: %w", err)
	}
	return g.fromPayload(payload)
}

// GobEncode encodes the group's relation as an XDR payload.
func (g *Group) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, g.payload()); err != nil {
		return nil, fmt.Errorf("failed to encode group payload: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode decodes an XDR group payload.
func (g *Group) GobDecode(data []byte) error {
	var payload nodePayload
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &payload); err != nil {
		return fmt.Errorf("failed to decode group payload: %w", err)
	}
	return g.fromPayload(payload)
}

// ============================================================================
// Dataset
// ============================================================================

func (d *Dataset) payload() nodePayload {
	return nodePayload{
		Root:         d.file.Descriptor(),
		InternalPath: d.path,
	}
}

func (d *Dataset) fromPayload(payload nodePayload) error {
	if err := payload.Root.Validate(); err != nil {
		return err
	}

	path := payload.InternalPath
	if path == "" {
		path = "/"
	}

	d.file = &File{desc: payload.Root.Clone()}
	d.path = path
	return nil
}

// MarshalJSON encodes the root descriptor and internal path.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.payload())
}

// UnmarshalJSON decodes a dataset proxy bound to no registry.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var payload nodePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to decode dataset payload: %w", err)
	}
	return d.fromPayload(payload)
}

// GobEncode encodes the dataset's relation as an XDR payload.
func (d *Dataset) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, d.payload()); err != nil {
		return nil, fmt.Errorf("failed to encode dataset payload: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode decodes an XDR dataset payload.
func (d *Dataset) GobDecode(data []byte) error {
	var payload nodePayload
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &payload); err != nil {
		return fmt.Errorf("failed to decode dataset payload: %w", err)
	}
	return d.fromPayload(payload)
}
