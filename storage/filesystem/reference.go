package filesystem

import (
	"errors"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/storer"
	"github.com/sourcehold/gitkit/storage"
	"github.com/sourcehold/gitkit/storage/filesystem/dotgit"
)

// ReferenceStorage is a storage.ReferenceStorer backed by a DotGit
// directory's loose refs and packed-refs file.
type ReferenceStorage struct {
	dir *dotgit.DotGit
}

// SetReference adds or replaces the reference.
func (r *ReferenceStorage) SetReference(ref *plumbing.Reference) error {
	return r.dir.SetRef(ref)
}

// CheckAndSetReference compares old against the current value of ref's
// name before setting it, failing if they differ.
func (r *ReferenceStorage) CheckAndSetReference(ref, old *plumbing.Reference) error {
	if ref == nil {
		return nil
	}

	if old != nil {
		tmp, err := r.dir.Ref(old.Name())
		if err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return err
		}

		if tmp != nil && tmp.Hash() != old.Hash() {
			return storage.ErrReferenceHasChanged
		}
	}

	return r.dir.SetRef(ref)
}

// RemoveReference deletes the reference named n.
func (r *ReferenceStorage) RemoveReference(n plumbing.ReferenceName) error {
	return r.dir.RemoveRef(n)
}

// CountLooseRefs returns the number of loose references on disk.
func (r *ReferenceStorage) CountLooseRefs() (int, error) {
	return r.dir.CountLooseRefs()
}

// PackRefs folds loose references into the packed-refs file.
func (r *ReferenceStorage) PackRefs() error {
	return r.dir.PackRefs()
}

// Reference returns the reference named n.
func (r *ReferenceStorage) Reference(n plumbing.ReferenceName) (*plumbing.Reference, error) {
	return r.dir.Ref(n)
}

// IterReferences returns an iterator over every reference in the storage.
func (r *ReferenceStorage) IterReferences() (storer.ReferenceIter, error) {
	refs, err := r.dir.Refs()
	if err != nil {
		return nil, err
	}

	return storer.NewReferenceSliceIter(refs), nil
}
