// Package idxfile implements encoding and decoding of .idx files,
// which index the object contents of a packfile by hash and byte
// offset.
package idxfile

import (
	"errors"

	"github.com/sourcehold/gitkit/plumbing"
)

// VersionSupported is the only idx version this package understands.
const VersionSupported = 2

const (
	fanoutEntries = 256
	crcSize       = 4
	offset32Size  = 4
	offset64Size  = 8

	// isOffset64Mask marks a 32-bit offset table entry as an index into
	// the 64-bit overflow table rather than a literal offset.
	isOffset64Mask = uint32(1) << 31

	// noMapping marks a fanout bucket that has no objects.
	noMapping = -1

	// defaultHashSize is used when a MemoryIndex's hash size hasn't been
	// set explicitly, matching the only object format idx v2 supports.
	defaultHashSize = 20
)

var idxHeader = []byte{255, 't', 'O', 'c'}

// ErrInvalidIdxFile is returned when a decoded idx file is malformed.
var ErrInvalidIdxFile = errors.New("invalid idx file")

// ErrUnsupportedVersion is returned when the idx file declares a
// version other than VersionSupported.
var ErrUnsupportedVersion = errors.New("unsupported version")

// Index provides lookups into a packfile's objects by hash and offset.
type Index interface {
	// Contains reports whether h is present in the index.
	Contains(h plumbing.Hash) (bool, error)
	// FindOffset returns the offset of h within the packfile.
	FindOffset(h plumbing.Hash) (int64, error)
	// FindCRC32 returns the CRC32 checksum of the object at h.
	FindCRC32(h plumbing.Hash) (uint32, error)
	// FindHash returns the hash of the object stored at the given
	// packfile offset.
	FindHash(offset int64) (plumbing.Hash, error)
	// Count returns the number of objects in the index.
	Count() (int64, error)
	// Entries returns an iterator over all entries, ordered by hash.
	Entries() (EntryIter, error)
	// EntriesByOffset returns an iterator over all entries, ordered by
	// packfile offset.
	EntriesByOffset() (EntryIter, error)
}

// Entry describes an indexed object.
type Entry struct {
	Hash   plumbing.Hash
	Offset uint64
	CRC32  uint32
}

// EntryIter iterates over the entries of an Index.
type EntryIter interface {
	// Next returns the next entry, or io.EOF once exhausted.
	Next() (*Entry, error)
	Close() error
}
