package storer

import (
	"io"

	"github.com/sourcehold/gitkit/plumbing"
)

// ReferenceStorer is a generic storage of references.
type ReferenceStorer interface {
	// SetReference stores r, overwriting any existing reference with the
	// same name.
	SetReference(r *plumbing.Reference) error
	// CheckAndSetReference stores new only if the reference currently
	// named new.Name() equals old (or if old is nil and no such
	// reference exists yet); otherwise it returns
	// storage.ErrReferenceHasChanged.
	CheckAndSetReference(new, old *plumbing.Reference) error
	// Reference returns the stored reference named n, or
	// plumbing.ErrReferenceNotFound.
	Reference(n plumbing.ReferenceName) (*plumbing.Reference, error)
	// IterReferences returns an iterator over every stored reference.
	IterReferences() (ReferenceIter, error)
	// RemoveReference deletes the reference named n. Removing a
	// nonexistent reference is not an error.
	RemoveReference(n plumbing.ReferenceName) error
	// CountLooseRefs returns the number of loose references currently
	// stored.
	CountLooseRefs() (int, error)
	// PackRefs folds loose references into a compacted form (e.g. the
	// on-disk packed-refs file).
	PackRefs() error
}

// ReferenceIter is a generic closable interface for iterating over
// references.
type ReferenceIter interface {
	Next() (*plumbing.Reference, error)
	ForEach(func(*plumbing.Reference) error) error
	Close()
}

type referenceSliceIter struct {
	series []*plumbing.Reference
	pos    int
}

// NewReferenceSliceIter returns an iterator over a series of references
// already held in memory, in the given order.
func NewReferenceSliceIter(series []*plumbing.Reference) *referenceSliceIter {
	return &referenceSliceIter{series: series}
}

func (i *referenceSliceIter) Next() (*plumbing.Reference, error) {
	if i.pos >= len(i.series) {
		return nil, io.EOF
	}

	obj := i.series[i.pos]
	i.pos++
	return obj, nil
}

func (i *referenceSliceIter) ForEach(cb func(*plumbing.Reference) error) error {
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

func (i *referenceSliceIter) Close() {
	i.pos = len(i.series)
}

type referenceFilteredIter struct {
	keep func(*plumbing.Reference) bool
	iter ReferenceIter
}

// NewReferenceFilteredIter returns an iterator over every reference from
// iter for which keep reports true.
func NewReferenceFilteredIter(
	keep func(*plumbing.Reference) bool,
	iter ReferenceIter,
) *referenceFilteredIter {
	return &referenceFilteredIter{keep: keep, iter: iter}
}

func (i *referenceFilteredIter) Next() (*plumbing.Reference, error) {
	for {
		obj, err := i.iter.Next()
		if err != nil {
			return nil, err
		}

		if i.keep(obj) {
			return obj, nil
		}
	}
}

func (i *referenceFilteredIter) ForEach(cb func(*plumbing.Reference) error) error {
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

func (i *referenceFilteredIter) Close() {
	i.iter.Close()
}

type multiReferenceIter struct {
	iters []ReferenceIter
	pos   int
}

// NewMultiReferenceIter concatenates the given iterators into one.
func NewMultiReferenceIter(iters []ReferenceIter) ReferenceIter {
	return &multiReferenceIter{iters: iters}
}

func (i *multiReferenceIter) Next() (*plumbing.Reference, error) {
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

func (i *multiReferenceIter) ForEach(cb func(*plumbing.Reference) error) error {
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

func (i *multiReferenceIter) Close() {
	for _, it := range i.iters {
		it.Close()
	}
}

// ResolveReference resolves name in s through symbolic indirections,
// bounded to avoid cycles.
func ResolveReference(s Storer, name plumbing.ReferenceName) (*plumbing.Reference, error) {
	r, err := s.Reference(name)
	if err != nil || r == nil {
		return r, err
	}

	const maxHops = 10
	for i := 0; i < maxHops && r.Type() == plumbing.SymbolicReference; i++ {
		next, err := s.Reference(r.Target())
		if err != nil {
			return nil, err
		}

		r = next
	}

	return r, nil
}
