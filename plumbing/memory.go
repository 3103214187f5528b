package plumbing

import (
	"bytes"
	"io"
)

// MemoryObject is an EncodedObject implementation backed by an in-memory
// byte slice. It is used by the in-memory object store and as a staging
// area while building objects before they are persisted.
type MemoryObject struct {
	typ  ObjectType
	cont []byte
	sz   int64
	h    Hash
}

// NewMemoryObject returns an empty MemoryObject that hashes its content
// using the object format of oh.
func NewMemoryObject(oh *ObjectHasher) *MemoryObject {
	return &MemoryObject{h: Hash{format: oh.format}}
}

// Hash returns the hash of the object. It returns the zero hash until the
// object's declared size matches the amount of content actually written;
// from then on the hash is computed once and cached, so a later SetType
// does not change it.
func (o *MemoryObject) Hash() Hash {
	if int64(len(o.cont)) != o.sz {
		return ZeroHash
	}

	if o.h.IsZero() {
		hasher := NewHasher(o.h.format, o.typ, o.sz)
		hasher.Write(o.cont)
		o.h = hasher.Sum()
	}
	return o.h
}

// Type returns the object type.
func (o *MemoryObject) Type() ObjectType { return o.typ }

// SetType sets the object type.
func (o *MemoryObject) SetType(t ObjectType) { o.typ = t }

// Size returns the declared size of the object.
func (o *MemoryObject) Size() int64 { return o.sz }

// SetSize sets the declared size of the object.
func (o *MemoryObject) SetSize(s int64) { o.sz = s }

// Reader returns a reader for the object's content.
func (o *MemoryObject) Reader() (io.ReadCloser, error) {
	return &nopCloser{bytes.NewReader(o.cont)}, nil
}

// Writer returns a writer that appends to the object's content.
func (o *MemoryObject) Writer() (io.WriteCloser, error) {
	return &memoryObjectWriter{o}, nil
}

type memoryObjectWriter struct {
	o *MemoryObject
}

func (w *memoryObjectWriter) Write(p []byte) (int, error) {
	w.o.cont = append(w.o.cont, p...)
	return len(p), nil
}

func (w *memoryObjectWriter) Close() error { return nil }

// Write appends p to the object's content, implementing io.Writer
// directly for convenience.
func (o *MemoryObject) Write(p []byte) (int, error) {
	o.cont = append(o.cont, p...)
	return len(p), nil
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
