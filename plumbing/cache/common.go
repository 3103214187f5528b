// Package cache provides an in-memory, size-bounded object cache used to
// avoid re-reading and re-inflating the same loose or packed object
// repeatedly during a single walk.
package cache

import "github.com/sourcehold/gitkit/plumbing"

const (
	Byte = 1 << (iota * 10)
	KiByte
	MiByte
	GiByte
)

// DefaultMaxSize is the default upper bound, in bytes, for an Object cache
// created with NewObjectLRUDefault.
const DefaultMaxSize = 96 * MiByte

// Object is a bounded cache of objects keyed by hash, evicted by size.
type Object interface {
	Put(o plumbing.EncodedObject)
	Get(k plumbing.Hash) (plumbing.EncodedObject, bool)
	Clear()
}

// FileSize is a size in bytes.
type FileSize int64

// Buffer is a bounded cache of raw byte buffers keyed by pack offset, used
// to avoid re-inflating the same delta base repeatedly within one pass.
type Buffer interface {
	Put(k int64, b []byte)
	Get(k int64) ([]byte, bool)
	Clear()
}
