package objfile

import (
	"bufio"
	"compress/zlib"
	"errors"
	"io"
	"strconv"

	"github.com/sourcehold/gitkit/plumbing"
	formatcfg "github.com/sourcehold/gitkit/plumbing/format/config"
)

var (
	errUnsupportedVersion = errors.New("unsupported zlib version")
	errCorruptedHeader    = errors.New("corrupted loose object header")
)

// Reader decodes a loose-object stream, exposing its type and size via
// Header and its content via Read.
type Reader struct {
	zlib   io.ReadCloser
	hasher plumbing.Hasher
	read   int64
	size   int64
}

// NewReader returns a Reader over the zlib stream r.
func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		if err == zlib.ErrHeader {
			return nil, errUnsupportedVersion
		}
		return nil, err
	}

	return &Reader{zlib: zr}, nil
}

// Header reads and parses the "<type> <size>\x00" header, returning the
// object's type and declared content size.
func (r *Reader) Header() (t plumbing.ObjectType, size int64, err error) {
	br := bufio.NewReader(r.zlib)

	typ, err := br.ReadString(' ')
	if err != nil {
		return plumbing.InvalidObject, 0, errCorruptedHeader
	}
	typ = typ[:len(typ)-1]

	sz, err := br.ReadString(0)
	if err != nil {
		return plumbing.InvalidObject, 0, errCorruptedHeader
	}
	sz = sz[:len(sz)-1]

	t, err = plumbing.ParseObjectType(typ)
	if err != nil {
		return plumbing.InvalidObject, 0, err
	}

	size, err = strconv.ParseInt(sz, 10, 64)
	if err != nil {
		return plumbing.InvalidObject, 0, errCorruptedHeader
	}

	r.size = size
	r.hasher = plumbing.NewHasher(formatcfg.DefaultObjectFormat, t, size)
	r.zlib = &bufioReadCloser{br, r.zlib}

	return t, size, nil
}

// Read implements io.Reader over the decompressed object content.
func (r *Reader) Read(p []byte) (n int, err error) {
	n, err = r.zlib.Read(p)
	if n > 0 {
		r.read += int64(n)
		r.hasher.Write(p[:n])
	}
	return
}

// Hash returns the object hash computed from the data read so far.
func (r *Reader) Hash() plumbing.Hash {
	return r.hasher.Sum()
}

// Close closes the underlying zlib stream.
func (r *Reader) Close() error {
	return r.zlib.Close()
}

type bufioReadCloser struct {
	r *bufio.Reader
	c io.Closer
}

func (b *bufioReadCloser) Read(p []byte) (int, error) { return b.r.Read(p) }
func (b *bufioReadCloser) Close() error                { return b.c.Close() }
