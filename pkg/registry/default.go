package registry

import (
	"sync"

	"github.com/grovedata/grove/pkg/store"
)

// The process-wide default registry. Proxies decoded from serialized form
// bind to it lazily unless explicitly rebound, mirroring how live handles
// and reconstructed handles must share one deduplication domain.

var (
	defaultMu       sync.RWMutex
	defaultRegistry *Registry
)

// SetDefault installs the process-wide default registry and returns the
// previous one (nil if unset). Tests that exercise decode paths install a
// fresh registry and restore the previous value when done.
func SetDefault(r *Registry) *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	previous := defaultRegistry
	defaultRegistry = r
	return previous
}

// Default returns the process-wide default registry.
//
// Returns:
//   - error: ErrNotSupported when no default has been installed; decoded
//     proxies surface this on first use rather than at decode time
func Default() (*Registry, error) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()

	if defaultRegistry == nil {
		return nil, &store.StoreError{
			Code:    store.ErrNotSupported,
			Message: "no default registry configured",
		}
	}
	return defaultRegistry, nil
}
