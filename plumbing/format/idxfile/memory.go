package idxfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/sourcehold/gitkit/plumbing"
)

// MemoryIndex is an in-memory representation of a packfile's .idx file.
// Objects are grouped into 256 fanout buckets keyed by the first byte
// of their hash; within a bucket, names/CRC32/Offset32 are parallel,
// hash-sorted byte slices.
type MemoryIndex struct {
	Version uint32

	// Fanout holds the cumulative object count for each first-byte
	// bucket, as stored in the idx file.
	Fanout [fanoutEntries]uint32

	// FanoutMapping maps a first-byte bucket to its index into Names,
	// CRC32 and Offset32, or noMapping if the bucket is empty.
	FanoutMapping [fanoutEntries]int

	// Names, CRC32 and Offset32 are indexed by bucket; within a
	// bucket the entries are sorted by hash.
	Names    [][]byte
	CRC32    [][]byte
	Offset32 [][]byte

	// Offset64 holds the 64-bit offsets for objects whose pack offset
	// doesn't fit in 31 bits.
	Offset64 []byte

	PackfileChecksum plumbing.Hash
	IdxChecksum      plumbing.Hash

	hashSize int

	offsetHashOnce sync.Once
	offsetHash     map[int64]plumbing.Hash
	offsetHashErr  error
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex returns an empty MemoryIndex sized for hashes of
// hashSize bytes (20 for SHA-1, 32 for SHA-256).
func NewMemoryIndex(hashSize int) *MemoryIndex {
	idx := &MemoryIndex{
		Version:  VersionSupported,
		hashSize: hashSize,
	}
	for i := range idx.FanoutMapping {
		idx.FanoutMapping[i] = noMapping
	}
	return idx
}

func (idx *MemoryIndex) hashLen() int {
	if idx.hashSize == 0 {
		return defaultHashSize
	}
	return idx.hashSize
}

// Count implements Index.
func (idx *MemoryIndex) Count() (int64, error) {
	return int64(idx.Fanout[fanoutEntries-1]), nil
}

// Contains implements Index.
func (idx *MemoryIndex) Contains(h plumbing.Hash) (bool, error) {
	_, _, ok, err := idx.findEntry(h)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// FindOffset implements Index.
func (idx *MemoryIndex) FindOffset(h plumbing.Hash) (int64, error) {
	bucket, pos, ok, err := idx.findEntry(h)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, plumbing.ErrObjectNotFound
	}

	return idx.offsetAt(bucket, pos)
}

// FindCRC32 implements Index.
func (idx *MemoryIndex) FindCRC32(h plumbing.Hash) (uint32, error) {
	bucket, pos, ok, err := idx.findEntry(h)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, plumbing.ErrObjectNotFound
	}

	return idx.crc32At(bucket, pos)
}

// FindHash implements Index.
func (idx *MemoryIndex) FindHash(offset int64) (plumbing.Hash, error) {
	idx.offsetHashOnce.Do(func() {
		idx.offsetHash, idx.offsetHashErr = idx.buildOffsetHash()
	})
	if idx.offsetHashErr != nil {
		return plumbing.ZeroHash, idx.offsetHashErr
	}

	h, ok := idx.offsetHash[offset]
	if !ok {
		return plumbing.ZeroHash, plumbing.ErrObjectNotFound
	}

	return h, nil
}

func (idx *MemoryIndex) buildOffsetHash() (map[int64]plumbing.Hash, error) {
	count, _ := idx.Count()
	out := make(map[int64]plumbing.Hash, count)

	for k := 0; k < fanoutEntries; k++ {
		bucket := idx.FanoutMapping[k]
		if bucket == noMapping {
			continue
		}

		n := len(idx.Names[bucket]) / idx.hashLen()
		for pos := 0; pos < n; pos++ {
			h, err := idx.hashAt(bucket, pos)
			if err != nil {
				return nil, err
			}

			offset, err := idx.offsetAt(bucket, pos)
			if err != nil {
				return nil, err
			}

			out[offset] = h
		}
	}

	return out, nil
}

// findEntry locates h, returning its bucket and position within that
// bucket.
func (idx *MemoryIndex) findEntry(h plumbing.Hash) (bucket, pos int, ok bool, err error) {
	b := idx.FanoutMapping[h.Bytes()[0]]
	if b == noMapping {
		return 0, 0, false, nil
	}
	if b < 0 || b >= len(idx.Names) {
		return 0, 0, false, fmt.Errorf("%w: invalid fanout mapping %d", ErrInvalidIdxFile, b)
	}

	names := idx.Names[b]
	hashLen := idx.hashLen()
	want := h.Bytes()
	n := len(names) / hashLen

	i := sort.Search(n, func(i int) bool {
		return bytes.Compare(names[i*hashLen:(i+1)*hashLen], want) >= 0
	})

	if i < n && bytes.Equal(names[i*hashLen:(i+1)*hashLen], want) {
		return b, i, true, nil
	}

	return 0, 0, false, nil
}

func (idx *MemoryIndex) hashAt(bucket, pos int) (plumbing.Hash, error) {
	hashLen := idx.hashLen()
	start := pos * hashLen
	end := start + hashLen
	if end > len(idx.Names[bucket]) {
		return plumbing.ZeroHash, fmt.Errorf("%w: invalid name index %d", ErrInvalidIdxFile, pos)
	}

	h, _ := plumbing.FromBytes(idx.Names[bucket][start:end])
	return h, nil
}

func (idx *MemoryIndex) crc32At(bucket, pos int) (uint32, error) {
	start := pos * crcSize
	end := start + crcSize
	if bucket >= len(idx.CRC32) || end > len(idx.CRC32[bucket]) {
		return 0, fmt.Errorf("%w: invalid CRC32 index %d", ErrInvalidIdxFile, bucket)
	}

	return binary.BigEndian.Uint32(idx.CRC32[bucket][start:end]), nil
}

func (idx *MemoryIndex) offsetAt(bucket, pos int) (int64, error) {
	start := pos * offset32Size
	end := start + offset32Size
	if bucket >= len(idx.Offset32) || end > len(idx.Offset32[bucket]) {
		return 0, fmt.Errorf("%w: invalid offset32 index %d", ErrInvalidIdxFile, bucket)
	}

	v := binary.BigEndian.Uint32(idx.Offset32[bucket][start:end])
	if v&isOffset64Mask == 0 {
		return int64(v), nil
	}

	o64 := int(v &^ isOffset64Mask)
	start64 := o64 * offset64Size
	end64 := start64 + offset64Size
	if end64 > len(idx.Offset64) {
		return 0, fmt.Errorf("%w: invalid offset64 index %d", ErrInvalidIdxFile, o64)
	}

	return int64(binary.BigEndian.Uint64(idx.Offset64[start64:end64])), nil
}

// Entries implements Index, iterating in hash order.
func (idx *MemoryIndex) Entries() (EntryIter, error) {
	return &memoryIndexEntryIter{idx: idx}, nil
}

// EntriesByOffset implements Index, iterating in packfile-offset order.
func (idx *MemoryIndex) EntriesByOffset() (EntryIter, error) {
	count, _ := idx.Count()
	entries := make(entriesByOffset, 0, count)

	it := &memoryIndexEntryIter{idx: idx}
	for {
		e, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	sort.Sort(entries)
	return &sliceEntryIter{entries: entries}, nil
}

type memoryIndexEntryIter struct {
	idx    *MemoryIndex
	bucket int
	pos    int
}

func (it *memoryIndexEntryIter) Next() (*Entry, error) {
	idx := it.idx

	for it.bucket < fanoutEntries {
		b := idx.FanoutMapping[it.bucket]
		if b == noMapping {
			it.bucket++
			continue
		}

		n := len(idx.Names[b]) / idx.hashLen()
		if it.pos >= n {
			it.bucket++
			it.pos = 0
			continue
		}

		h, err := idx.hashAt(b, it.pos)
		if err != nil {
			return nil, err
		}
		crc, err := idx.crc32At(b, it.pos)
		if err != nil {
			return nil, err
		}
		offset, err := idx.offsetAt(b, it.pos)
		if err != nil {
			return nil, err
		}

		it.pos++
		return &Entry{Hash: h, Offset: uint64(offset), CRC32: crc}, nil
	}

	return nil, io.EOF
}

func (it *memoryIndexEntryIter) Close() error {
	it.bucket = fanoutEntries
	return nil
}

type entriesByOffset []*Entry

func (e entriesByOffset) Len() int           { return len(e) }
func (e entriesByOffset) Less(i, j int) bool { return e[i].Offset < e[j].Offset }
func (e entriesByOffset) Swap(i, j int)      { e[i], e[j] = e[j], e[i] }

type sliceEntryIter struct {
	entries []*Entry
	pos     int
}

func (it *sliceEntryIter) Next() (*Entry, error) {
	if it.pos >= len(it.entries) {
		return nil, io.EOF
	}

	e := it.entries[it.pos]
	it.pos++
	return e, nil
}

func (it *sliceEntryIter) Close() error {
	it.pos = len(it.entries)
	return nil
}
