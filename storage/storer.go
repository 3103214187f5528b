// Package storage defines the interfaces for storing objects, references
// and any information related to a particular repository.
package storage

import (
	"errors"

	formatcfg "github.com/sourcehold/gitkit/plumbing/format/config"
	"github.com/sourcehold/gitkit/plumbing/storer"
)

// ErrReferenceHasChanged is returned when an atomic compare-and-swap operation fails
// because the reference has changed concurrently.
var ErrReferenceHasChanged = errors.New("reference has changed concurrently")

// Storer composes the object store and ref store contracts that the core
// requires: read object, write object, read ref, write ref. Submodule and
// repository-config storage (go-git's ModuleStorer/config.ConfigStorer) sit
// outside this boundary and are not part of this package.
type Storer interface {
	storer.EncodedObjectStorer
	storer.ReferenceStorer
}

// ObjectFormatSetter is implemented by storage backends that support
// configuring the object format (hash algorithm) used for the repository.
type ObjectFormatSetter interface {
	// SetObjectFormat configures the object format (hash algorithm) for this storage.
	SetObjectFormat(formatcfg.ObjectFormat) error
}
