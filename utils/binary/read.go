package binary

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/sourcehold/gitkit/plumbing"
)

// sniffLen is the number of bytes inspected by IsBinary when deciding
// whether a reader holds binary content, matching git's own buffer
// size for this heuristic.
const sniffLen = 8000

// Read reads the binary representation of data from r, using BigEndian
// order.
// https://golang.org/pkg/encoding/binary/#Read
func Read(r io.Reader, data ...interface{}) error {
	for _, v := range data {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return err
		}
	}

	return nil
}

// ReadUntil reads from r until delim is found, returning the bytes
// read before the delimiter.
func ReadUntil(r io.Reader, delim byte) ([]byte, error) {
	if bufr, ok := r.(*bufio.Reader); ok {
		return ReadUntilFromBufioReader(bufr, delim)
	}

	var buf [1]byte
	value := make([]byte, 0, 16)
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		if buf[0] == delim {
			return value, nil
		}

		value = append(value, buf[0])
	}
}

// ReadUntilFromBufioReader reads from r until delim is found, returning
// the bytes read before the delimiter. It is more efficient than
// ReadUntil when r is already a *bufio.Reader.
func ReadUntilFromBufioReader(r *bufio.Reader, delim byte) ([]byte, error) {
	value, err := r.ReadBytes(delim)
	if err != nil {
		return nil, err
	}

	return value[:len(value)-1], nil
}

// ReadVariableWidthInt reads and decodes from r an int using the Git
// variable width encoding, consisting of little-endian digit groups of
// 7-bits; the most significant bit of each byte indicates whether
// another byte follows. Following groups are added to a running total
// plus one, matching the encoding used for delta instruction sizes.
func ReadVariableWidthInt(r io.Reader) (int64, error) {
	var c byte
	if err := Read(r, &c); err != nil {
		return 0, err
	}

	var value = int64(c & maskLength)
	for c&maskContinue > 0 {
		value++
		if err := Read(r, &c); err != nil {
			return 0, err
		}

		value = (value << lengthBits) + int64(c&maskLength)
	}

	return value, nil
}

const (
	maskContinue = 0x80
	maskLength   = 0x7f
	lengthBits   = 7
)

// ReadUint32 reads 4 bytes from r and returns them as a big-endian
// uint32.
func ReadUint32(r io.Reader) (uint32, error) {
	var v uint32
	if err := Read(r, &v); err != nil {
		return 0, err
	}

	return v, nil
}

// ReadUint16 reads 2 bytes from r and returns them as a big-endian
// uint16.
func ReadUint16(r io.Reader) (uint16, error) {
	var v uint16
	if err := Read(r, &v); err != nil {
		return 0, err
	}

	return v, nil
}

// ReadHash reads length bytes from r and returns them as a Hash. On a
// short read it returns the zero hash and the underlying error.
func ReadHash(r io.Reader, length int) (plumbing.Hash, error) {
	var h plumbing.Hash
	h.ResetBySize(length)

	if _, err := h.ReadFrom(r); err != nil {
		return plumbing.ZeroHash, err
	}

	return h, nil
}

// IsBinary detects if data is binary by scanning the first sniffLen
// bytes of r for a NUL byte.
func IsBinary(r io.Reader) (bool, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}

	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true, nil
		}
	}

	return false, nil
}
