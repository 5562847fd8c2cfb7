package store

import "errors"

// StoreError represents a domain error from volume operations.
//
// These are business logic errors (node not found, volume read-only, etc.)
// as opposed to infrastructure errors (network failure, disk error).
// Infrastructure failures surface as ErrOpenFailed/ErrCloseFailed/ErrIOError
// with the underlying cause in the message.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the volume or node path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested volume or node doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a node or volume with the name already exists
	ErrAlreadyExists

	// ErrNotGroup indicates operation expected a group but got another kind
	ErrNotGroup

	// ErrNotDataset indicates operation expected a dataset but got another kind
	ErrNotDataset

	// ErrInvalidDescriptor indicates the open descriptor is malformed
	// Different from ErrNotFound - the descriptor itself cannot identify a volume
	ErrInvalidDescriptor

	// ErrInvalidArgument indicates invalid parameters were provided
	// Examples: empty name, name containing a slash, negative shape
	ErrInvalidArgument

	// ErrReadOnly indicates operation failed because the volume is read-only
	ErrReadOnly

	// ErrNotSupported indicates operation is not supported by the backend
	ErrNotSupported

	// ErrOpenFailed indicates the backend could not open the volume
	// The failure is propagated as-is; callers decide whether to retry
	ErrOpenFailed

	// ErrCloseFailed indicates the backend could not release a volume cleanly
	// Suppressed and logged on cache eviction, returned from explicit release
	ErrCloseFailed

	// ErrStaleHandle indicates a handle whose volume has been closed under it
	ErrStaleHandle

	// ErrIOError indicates an I/O error while reading or writing node data
	ErrIOError
)

// IsCode reports whether err is a StoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Code == code
}
