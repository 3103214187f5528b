package idxfile

import (
	"fmt"
	"hash"
	"io"

	"github.com/pjbgf/sha1cd"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/utils/binary"
)

// Encoder writes MemoryIndex values to an output stream in the idx v2
// binary format. Version 2 always checksums with SHA-1, independent of
// the object format of the packfile it indexes.
type Encoder struct {
	io.Writer
	hash hash.Hash
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	h := sha1cd.New()
	return &Encoder{Writer: io.MultiWriter(w, h), hash: h}
}

// Encode writes idx to the encoder's writer, returning the number of
// bytes written.
func (e *Encoder) Encode(idx *MemoryIndex) (int, error) {
	flow := []func(*MemoryIndex) (int, error){
		e.encodeHeader,
		e.encodeFanout,
		e.encodeNames,
		e.encodeCRC32,
		e.encodeOffsets,
		e.encodeChecksums,
	}

	sz := 0
	for _, f := range flow {
		n, err := f(idx)
		sz += n
		if err != nil {
			return sz, err
		}
	}

	return sz, nil
}

func (e *Encoder) encodeHeader(idx *MemoryIndex) (int, error) {
	n, err := e.Write(idxHeader)
	if err != nil {
		return n, err
	}

	if idx.Version == 0 {
		idx.Version = VersionSupported
	}
	if idx.Version != VersionSupported {
		return n, fmt.Errorf("%w: %d", ErrUnsupportedVersion, idx.Version)
	}

	if err := binary.WriteUint32(e, idx.Version); err != nil {
		return n, err
	}

	return n + 4, nil
}

func (e *Encoder) encodeFanout(idx *MemoryIndex) (int, error) {
	for _, c := range idx.Fanout {
		if err := binary.WriteUint32(e, c); err != nil {
			return 0, err
		}
	}

	return fanoutEntries * 4, nil
}

func (e *Encoder) encodeNames(idx *MemoryIndex) (int, error) {
	size := 0
	for k := 0; k < fanoutEntries; k++ {
		bucket := idx.FanoutMapping[k]
		if bucket == noMapping {
			continue
		}
		if bucket >= len(idx.Names) {
			return size, fmt.Errorf("%w: invalid position %d", ErrInvalidIdxFile, bucket)
		}

		n, err := e.Write(idx.Names[bucket])
		if err != nil {
			return size, err
		}
		size += n
	}

	return size, nil
}

func (e *Encoder) encodeCRC32(idx *MemoryIndex) (int, error) {
	size := 0
	for k := 0; k < fanoutEntries; k++ {
		bucket := idx.FanoutMapping[k]
		if bucket == noMapping {
			continue
		}
		if bucket >= len(idx.CRC32) {
			return size, fmt.Errorf("%w: invalid CRC32 index %d", ErrInvalidIdxFile, bucket)
		}

		n, err := e.Write(idx.CRC32[bucket])
		if err != nil {
			return size, err
		}
		size += n
	}

	return size, nil
}

func (e *Encoder) encodeOffsets(idx *MemoryIndex) (int, error) {
	size := 0
	for k := 0; k < fanoutEntries; k++ {
		bucket := idx.FanoutMapping[k]
		if bucket == noMapping {
			continue
		}
		if bucket >= len(idx.Offset32) {
			return size, fmt.Errorf("%w: invalid offset32 index %d", ErrInvalidIdxFile, bucket)
		}

		n, err := e.Write(idx.Offset32[bucket])
		if err != nil {
			return size, err
		}
		size += n
	}

	if len(idx.Offset64) > 0 {
		n, err := e.Write(idx.Offset64)
		if err != nil {
			return size, err
		}
		size += n
	}

	return size, nil
}

func (e *Encoder) encodeChecksums(idx *MemoryIndex) (int, error) {
	n1, err := e.Write(idx.PackfileChecksum.Bytes())
	if err != nil {
		return 0, err
	}

	sum := e.hash.Sum(nil)
	idx.IdxChecksum, _ = plumbing.FromBytes(sum)

	n2, err := e.Write(idx.IdxChecksum.Bytes())
	if err != nil {
		return n1, err
	}

	return n1 + n2, nil
}
