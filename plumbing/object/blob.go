package object

import (
	"io"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/storer"
)

// Blob is the content of a file, with no name or mode attached; those live
// in the Tree entry that references it.
type Blob struct {
	Hash plumbing.Hash
	Size int64

	obj plumbing.EncodedObject
}

// ID returns the hash of the blob.
func (b *Blob) ID() plumbing.Hash { return b.Hash }

// Type returns plumbing.BlobObject.
func (b *Blob) Type() plumbing.ObjectType { return plumbing.BlobObject }

// Decode transforms an EncodedObject into a Blob.
func (b *Blob) Decode(o plumbing.EncodedObject) error {
	if o.Type() != plumbing.BlobObject {
		return ErrUnsupportedObject
	}

	b.Hash = o.Hash()
	b.Size = o.Size()
	b.obj = o
	return nil
}

// Encode transforms a Blob into an EncodedObject.
func (b *Blob) Encode(o plumbing.EncodedObject) error {
	o.SetType(plumbing.BlobObject)

	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	r, err := b.Reader()
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = io.Copy(w, r)
	return err
}

// Reader returns a reader over the blob's content.
func (b *Blob) Reader() (io.ReadCloser, error) {
	return b.obj.Reader()
}

// BlobIter iterates over blobs decoded from an underlying EncodedObjectIter.
type BlobIter struct {
	storer.EncodedObjectIter
}

// NewBlobIter wraps iter, decoding every object it produces as a Blob.
func NewBlobIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *BlobIter {
	return &BlobIter{iter}
}

// Next decodes and returns the next blob.
func (i *BlobIter) Next() (*Blob, error) {
	obj, err := i.EncodedObjectIter.Next()
	if err != nil {
		return nil, err
	}

	b := &Blob{}
	return b, b.Decode(obj)
}

// ForEach calls cb for every remaining blob, stopping on error or storer.ErrStop.
func (i *BlobIter) ForEach(cb func(*Blob) error) error {
	return i.EncodedObjectIter.ForEach(func(obj plumbing.EncodedObject) error {
		b := &Blob{}
		if err := b.Decode(obj); err != nil {
			return err
		}

		return cb(b)
	})
}
