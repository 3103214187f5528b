package storer

import (
	"errors"

	"github.com/sourcehold/gitkit/plumbing"
)

// Storer is a basic storer for encoded objects and references.
type Storer interface {
	EncodedObjectStorer
	ReferenceStorer
}

// Initializer should be implemented by storers that require to perform any
// operation when creating a new repository (i.e. git init).
type Initializer interface {
	// Init performs initialization of the storer and returns the error, if
	// any.
	Init() error
}

// Options holds configuration for the storage.
type Options struct {
	// Static means that the filesystem is not modified while the repo is open.
	Static bool
}

// ErrStop is used to stop a ForEach function in an Iter.
var ErrStop = errors.New("stop iter")

// Transaction is an in-progress storage transaction. A transaction must end
// with a call to Commit or Rollback.
type Transaction interface {
	SetEncodedObject(plumbing.EncodedObject) (plumbing.Hash, error)
	EncodedObject(plumbing.ObjectType, plumbing.Hash) (plumbing.EncodedObject, error)
	Commit() error
	Rollback() error
}
