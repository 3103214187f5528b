// Package objfile implements the zlib-compressed loose object format git
// stores under .git/objects: a "<type> <size>\x00" header followed by the
// object's raw content, all deflated as a single stream.
package objfile

import (
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/sourcehold/gitkit/plumbing"
	formatcfg "github.com/sourcehold/gitkit/plumbing/format/config"
)

var (
	// ErrOverflow is returned when a Writer receives more bytes than the
	// size declared by WriteHeader.
	ErrOverflow = errors.New("write beyond end of object")
	// ErrNegativeSize is returned by WriteHeader when size is negative.
	ErrNegativeSize = errors.New("negative object size")
)

// Writer encodes a single object to the loose-object format, computing
// its hash as content is written.
type Writer struct {
	raw     io.Writer
	zlib    io.WriteCloser
	hasher  plumbing.Hasher
	written int64
	size    int64
	closed  bool
}

// NewWriter returns a Writer that deflates onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{raw: w}
}

// WriteHeader writes the "<type> <size>\x00" header. It must be called
// exactly once, before any call to Write.
func (w *Writer) WriteHeader(t plumbing.ObjectType, size int64) error {
	if t == plumbing.InvalidObject || !t.Valid() {
		return plumbing.ErrInvalidType
	}

	if size < 0 {
		return ErrNegativeSize
	}

	w.size = size
	w.hasher = plumbing.NewHasher(formatcfg.DefaultObjectFormat, t, size)
	w.zlib = zlib.NewWriter(w.raw)

	header := []byte(fmt.Sprintf("%s %d", t, size))
	header = append(header, 0)

	_, err := w.zlib.Write(header)
	return err
}

// Write appends content to the object. Writing more bytes than the size
// passed to WriteHeader returns ErrOverflow for the excess.
func (w *Writer) Write(p []byte) (n int, err error) {
	overflow := (w.written + int64(len(p))) - w.size
	if overflow > 0 {
		p = p[:int64(len(p))-overflow]
	}

	n, err = w.zlib.Write(p)
	w.written += int64(n)
	if err == nil && overflow > 0 {
		err = ErrOverflow
	}

	w.hasher.Write(p)
	return
}

// Hash returns the hash of the object written so far.
func (w *Writer) Hash() plumbing.Hash {
	return w.hasher.Sum()
}

// Close flushes the zlib stream.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.zlib.Close()
}
