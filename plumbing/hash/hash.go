// Package hash selects and exposes the digest implementation used to
// compute object hashes, decoupling the rest of the module from a single
// hardcoded algorithm.
package hash

import (
	"crypto"
	"errors"
	"fmt"
	"hash"
	"sync"

	"github.com/pjbgf/sha1cd"
)

// ErrUnsupportedHashFunction is returned by RegisterHash for any
// crypto.Hash other than SHA-1 or SHA-256; those are the only two digests
// a repository's object format may select (see plumbing/format/config).
var ErrUnsupportedHashFunction = errors.New("unsupported hash function")

// registry holds the constructor for each supported digest. It is guarded
// by a mutex because server connections may call New concurrently with a
// call to RegisterHash.
type registry struct {
	mu    sync.RWMutex
	ctors map[crypto.Hash]func() hash.Hash
}

var defaultRegistry = newRegistry()

func newRegistry() *registry {
	r := &registry{ctors: make(map[crypto.Hash]func() hash.Hash, 2)}
	r.reset()
	return r
}

// reset restores the default constructors; newRegistry calls it to
// install them.
func (r *registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[crypto.SHA1] = sha1cd.New
	r.ctors[crypto.SHA256] = crypto.SHA256.New
}

func (r *registry) register(h crypto.Hash, f func() hash.Hash) error {
	if f == nil {
		return fmt.Errorf("cannot register hash: f is nil")
	}
	if h != crypto.SHA1 && h != crypto.SHA256 {
		return fmt.Errorf("%w: %v", ErrUnsupportedHashFunction, h)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[h] = f
	return nil
}

func (r *registry) new(h crypto.Hash) Hash {
	r.mu.RLock()
	f, ok := r.ctors[h]
	r.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("hash algorithm not registered: %v", h))
	}
	return f()
}

// RegisterHash overrides the constructor used for h. Overriding the
// default is always explicit and limited to the two digests the object
// format supports; anything else is rejected.
func RegisterHash(h crypto.Hash, f func() hash.Hash) error {
	return defaultRegistry.register(h, f)
}

// Hash is hash.Hash, re-exported so callers need not also import "hash".
type Hash interface {
	hash.Hash
}

// New returns a new digest for h. It panics if h has no registered
// constructor, which should only happen for a crypto.Hash outside
// {SHA1, SHA256}.
func New(h crypto.Hash) Hash {
	return defaultRegistry.new(h)
}
