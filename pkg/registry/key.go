package registry

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/grovedata/grove/pkg/store"
)

// Key indexes cached handles by their open request.
//
// A key is the SHA-256 digest of the descriptor's canonical encoding, so it
// is a pure function of descriptor content: equal descriptors always produce
// equal keys, and parameter order never matters. Keys are cache-internal and
// are never persisted or exchanged.
//
// SHA-256 collisions are not treated as impossible: on every cache hit the
// registry re-checks descriptor equality and refuses to alias two different
// open requests onto one handle (see Registry.Acquire).
type Key [sha256.Size]byte

// HashDescriptor derives the cache key for a descriptor.
func HashDescriptor(desc store.Descriptor) Key {
	return Key(sha256.Sum256(desc.Canonical()))
}

// String returns a short hex prefix for logging.
func (k Key) String() string {
	return hex.EncodeToString(k[:8])
}
