package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
)

// ============================================================================
// Open Modes
// ============================================================================

// Mode selects how a volume is opened. The literals follow the usual
// data-file convention.
type Mode string

const (
	// ModeRead opens an existing volume read-only.
	ModeRead Mode = "r"

	// ModeReadWrite opens an existing volume for reading and writing.
	ModeReadWrite Mode = "r+"

	// ModeCreate creates a volume, truncating any existing content.
	ModeCreate Mode = "w"

	// ModeCreateExclusive creates a volume, failing if one already exists.
	ModeCreateExclusive Mode = "w-"

	// ModeAppend opens a volume read-write, creating it if missing.
	ModeAppend Mode = "a"
)

// Valid reports whether m is one of the defined open modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeRead, ModeReadWrite, ModeCreate, ModeCreateExclusive, ModeAppend:
		return true
	}
	return false
}

// Writable reports whether volumes opened with m accept mutations.
func (m Mode) Writable() bool {
	return m != ModeRead
}

// Creates reports whether m may create a volume that does not exist yet.
func (m Mode) Creates() bool {
	switch m {
	case ModeCreate, ModeCreateExclusive, ModeAppend:
		return true
	}
	return false
}

// ============================================================================
// Descriptor
// ============================================================================

// Descriptor identifies a volume open request: which volume, how to open it,
// and any backend-specific extras. It is both the identity used to
// deduplicate live handles and the recipe used to reconstruct them after
// deserialization, so it must stay cheap, comparable, and free of any live
// state.
//
// Two descriptors are the same open request when their paths and modes match
// and their extra parameters match after canonicalization (sorted by name,
// duplicate names resolved to the last occurrence). Parameter order at
// construction time therefore never affects identity.
type Descriptor struct {
	// Path names the volume within its backend (a filesystem path, a badger
	// namespace, an s3 bucket/prefix key).
	Path string `json:"path"`

	// Mode is the open mode.
	Mode Mode `json:"mode"`

	// Extra carries backend-specific open parameters.
	Extra []Param `json:"extra,omitempty"`
}

// Param is one named open parameter. Values are stored in canonical text
// form; use the typed constructors for non-string values.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StringParam builds a string-valued parameter.
func StringParam(name, value string) Param {
	return Param{Name: name, Value: value}
}

// BoolParam builds a boolean parameter ("true"/"false").
func BoolParam(name string, value bool) Param {
	return Param{Name: name, Value: strconv.FormatBool(value)}
}

// IntParam builds an integer parameter in base-10 text form.
func IntParam(name string, value int64) Param {
	return Param{Name: name, Value: strconv.FormatInt(value, 10)}
}

// FloatParam builds a float parameter in shortest round-trip text form.
func FloatParam(name string, value float64) Param {
	return Param{Name: name, Value: strconv.FormatFloat(value, 'g', -1, 64)}
}

// Validate checks that the descriptor can identify an open request.
func (d Descriptor) Validate() error {
	if d.Path == "" {
		return &StoreError{
			Code:    ErrInvalidDescriptor,
			Message: "descriptor has empty path",
		}
	}
	if !d.Mode.Valid() {
		return &StoreError{
			Code:    ErrInvalidDescriptor,
			Message: fmt.Sprintf("descriptor has unknown mode %q", string(d.Mode)),
			Path:    d.Path,
		}
	}
	for _, p := range d.Extra {
		if p.Name == "" {
			return &StoreError{
				Code:    ErrInvalidDescriptor,
				Message: "descriptor has parameter with empty name",
				Path:    d.Path,
			}
		}
	}
	return nil
}

// Param returns the canonical value of a named extra parameter.
func (d Descriptor) Param(name string) (string, bool) {
	// Later occurrences win, matching canonicalization.
	value, found := "", false
	for _, p := range d.Extra {
		if p.Name == name {
			value, found = p.Value, true
		}
	}
	return value, found
}

// Canonical returns the canonical byte encoding of the descriptor: each
// field length-prefixed (big endian), extras sorted by name with duplicate
// names collapsed to the last occurrence. Equal open requests produce equal
// encodings regardless of parameter order.
func (d Descriptor) Canonical() []byte {
	extra := d.canonicalExtra()

	buf := make([]byte, 0, 16+len(d.Path)+len(d.Mode)+16*len(extra))
	buf = appendLengthPrefixed(buf, d.Path)
	buf = appendLengthPrefixed(buf, string(d.Mode))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(extra)))
	for _, p := range extra {
		buf = appendLengthPrefixed(buf, p.Name)
		buf = appendLengthPrefixed(buf, p.Value)
	}
	return buf
}

// Equal reports whether two descriptors denote the same open request.
func (d Descriptor) Equal(other Descriptor) bool {
	return bytes.Equal(d.Canonical(), other.Canonical())
}

// Clone returns a deep copy. Descriptors are treated as immutable once
// handed to the registry; callers that need to tweak one copy it first.
func (d Descriptor) Clone() Descriptor {
	out := Descriptor{Path: d.Path, Mode: d.Mode}
	if len(d.Extra) > 0 {
		out.Extra = make([]Param, len(d.Extra))
		copy(out.Extra, d.Extra)
	}
	return out
}

func (d Descriptor) String() string {
	if len(d.Extra) == 0 {
		return fmt.Sprintf("%s (mode %s)", d.Path, d.Mode)
	}
	return fmt.Sprintf("%s (mode %s, %d params)", d.Path, d.Mode, len(d.Extra))
}

// canonicalExtra returns the extras sorted by name, last duplicate winning.
func (d Descriptor) canonicalExtra() []Param {
	if len(d.Extra) == 0 {
		return nil
	}

	byName := make(map[string]string, len(d.Extra))
	for _, p := range d.Extra {
		byName[p.Name] = p.Value
	}

	out := make([]Param, 0, len(byName))
	for name, value := range byName {
		out = append(out, Param{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func appendLengthPrefixed(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}
