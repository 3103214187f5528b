package storer

import (
	"io"

	"github.com/sourcehold/gitkit/plumbing"
)

// EncodedObjectStorer is a generic storage of objects, identified by hash.
type EncodedObjectStorer interface {
	// NewEncodedObject returns a new, empty object, to be filled in
	// with object data and passed to SetEncodedObject, or used as a
	// buffer.
	NewEncodedObject() plumbing.EncodedObject
	// SetEncodedObject persists the given object, returning its hash.
	SetEncodedObject(plumbing.EncodedObject) (plumbing.Hash, error)
	// EncodedObject returns the object for the given hash, validating its
	// type against t unless t is plumbing.AnyObject. Returns
	// plumbing.ErrObjectNotFound if no object exists with that hash.
	EncodedObject(t plumbing.ObjectType, h plumbing.Hash) (plumbing.EncodedObject, error)
	// IterEncodedObjects returns an iterator over every stored object of
	// the given type, or every object if t is plumbing.AnyObject.
	IterEncodedObjects(t plumbing.ObjectType) (EncodedObjectIter, error)
	// HasEncodedObject returns plumbing.ErrObjectNotFound if h is not
	// present, nil otherwise.
	HasEncodedObject(h plumbing.Hash) error
	// EncodedObjectSize returns the size of the object with hash h
	// without reading its full content.
	EncodedObjectSize(h plumbing.Hash) (int64, error)
}

// DeltaObjectStorer is implemented by storers that can return objects still
// encoded as a delta, given their base is already known.
type DeltaObjectStorer interface {
	DeltaObject(plumbing.ObjectType, plumbing.Hash) (plumbing.EncodedObject, error)
}

// EncodedObjectIter is a generic closable interface for iterating over
// objects.
type EncodedObjectIter interface {
	Next() (plumbing.EncodedObject, error)
	ForEach(func(plumbing.EncodedObject) error) error
	Close()
}

type encodedObjectSliceIter struct {
	series []plumbing.EncodedObject
}

// NewEncodedObjectSliceIter returns an iterator over a series of objects
// already held in memory, in the given order.
func NewEncodedObjectSliceIter(series []plumbing.EncodedObject) *encodedObjectSliceIter {
	return &encodedObjectSliceIter{series: series}
}

func (i *encodedObjectSliceIter) Next() (plumbing.EncodedObject, error) {
	if len(i.series) == 0 {
		return nil, io.EOF
	}

	obj := i.series[0]
	i.series = i.series[1:]
	return obj, nil
}

func (i *encodedObjectSliceIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	for {
		obj, err := i.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(obj); err != nil {
			if err == ErrStop {
				return nil
			}
			return err
		}
	}
}

func (i *encodedObjectSliceIter) Close() {
	i.series = nil
}

type encodedObjectLookupIter struct {
	storer EncodedObjectStorer
	typ    plumbing.ObjectType
	series []plumbing.Hash
	pos    int
}

// NewEncodedObjectLookupIter returns an iterator that fetches, one at a
// time, the objects named by series from storer.
func NewEncodedObjectLookupIter(
	storer EncodedObjectStorer,
	typ plumbing.ObjectType,
	series []plumbing.Hash,
) EncodedObjectIter {
	return &encodedObjectLookupIter{storer: storer, typ: typ, series: series}
}

func (i *encodedObjectLookupIter) Next() (plumbing.EncodedObject, error) {
	if i.pos >= len(i.series) {
		return nil, io.EOF
	}

	obj, err := i.storer.EncodedObject(i.typ, i.series[i.pos])
	i.pos++
	return obj, err
}

func (i *encodedObjectLookupIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	for {
		obj, err := i.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(obj); err != nil {
			if err == ErrStop {
				return nil
			}
			return err
		}
	}
}

func (i *encodedObjectLookupIter) Close() {
	i.pos = len(i.series)
}

type multiEncodedObjectIter struct {
	iters []EncodedObjectIter
	pos   int
}

// NewMultiEncodedObjectIter concatenates the given iterators into one.
func NewMultiEncodedObjectIter(iters []EncodedObjectIter) EncodedObjectIter {
	return &multiEncodedObjectIter{iters: iters}
}

func (i *multiEncodedObjectIter) Next() (plumbing.EncodedObject, error) {
	for i.pos < len(i.iters) {
		obj, err := i.iters[i.pos].Next()
		if err == io.EOF {
			i.pos++
			continue
		}
		return obj, err
	}

	return nil, io.EOF
}

func (i *multiEncodedObjectIter) ForEach(cb func(plumbing.EncodedObject) error) error {
	for {
		obj, err := i.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(obj); err != nil {
			if err == ErrStop {
				return nil
			}
			return err
		}
	}
}

func (i *multiEncodedObjectIter) Close() {
	for _, it := range i.iters {
		it.Close()
	}
}
