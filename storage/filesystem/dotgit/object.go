package dotgit

import (
	"io"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/format/objfile"
)

// NewEncodedObject returns a plumbing.EncodedObject for the loose object h
// that re-reads its content from dir on every call to Reader, instead of
// buffering it in memory. It is used for objects larger than a storage's
// configured LargeObjectThreshold.
func NewEncodedObject(dir *DotGit, h plumbing.Hash, t plumbing.ObjectType, size int64) plumbing.EncodedObject {
	return &largeObject{dir: dir, hash: h, typ: t, size: size}
}

type largeObject struct {
	dir  *DotGit
	hash plumbing.Hash
	typ  plumbing.ObjectType
	size int64
}

func (o *largeObject) Hash() plumbing.Hash         { return o.hash }
func (o *largeObject) Type() plumbing.ObjectType   { return o.typ }
func (o *largeObject) SetType(plumbing.ObjectType) {}
func (o *largeObject) Size() int64                 { return o.size }
func (o *largeObject) SetSize(int64)               {}

// Writer always returns a nil writer: large objects are only ever read back
// from their loose object file, never rewritten through this wrapper.
func (o *largeObject) Writer() (io.WriteCloser, error) {
	return nil, nil
}

// Reader re-opens the loose object file and skips past its header, so each
// call starts from the object's content.
func (o *largeObject) Reader() (io.ReadCloser, error) {
	f, err := o.dir.Object(o.hash)
	if err != nil {
		return nil, err
	}

	r, err := objfile.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if _, _, err := r.Header(); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}
