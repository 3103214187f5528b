package server

import (
	"context"
	"io"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/object"
	"github.com/sourcehold/gitkit/plumbing/protocol/packp"
	"github.com/sourcehold/gitkit/plumbing/protocol/packp/capability"
	"github.com/sourcehold/gitkit/plumbing/storer"
	"github.com/sourcehold/gitkit/storage"
)

func addReferences(st storage.Storer, ar *packp.AdvRefs, addHead bool) error {
	iter, err := st.IterReferences()
	if err != nil {
		return err
	}

	// Add references and their peeled values
	if err := iter.ForEach(func(r *plumbing.Reference) error {
		hash, name := r.Hash(), r.Name()
		switch r.Type() {
		case plumbing.SymbolicReference:
			ref, err := storer.ResolveReference(st, r.Target())
			if err != nil {
				return err
			}
			hash = ref.Hash()
		}
		if name == plumbing.HEAD {
			if !addHead {
				return nil
			}
			ar.Head = &hash
		}
		ar.References[name.String()] = hash
		if r.Name().IsTag() {
			if tag, err := object.GetTag(st, hash); err == nil {
				ar.Peeled[name.String()+"^{}"] = tag.Target
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return nil
}

// AdvertiseReferences is a server command that implements the reference
// discovery phase of the Git transfer protocol.
func AdvertiseReferences(ctx context.Context, st storage.Storer, w io.Writer, forPush bool) error {
	ar := packp.NewAdvRefs()

	// Set server default capabilities
	ar.Capabilities.Set(capability.Agent, capability.DefaultAgent()) // nolint: errcheck
	ar.Capabilities.Set(capability.OFSDelta)                         // nolint: errcheck
	ar.Capabilities.Set(capability.Sideband)                         // nolint: errcheck
	ar.Capabilities.Set(capability.Sideband64k)                      // nolint: errcheck
	ar.Capabilities.Set(capability.NoProgress)                       // nolint: errcheck
	if forPush {
		ar.Capabilities.Set(capability.ReportStatus) // nolint: errcheck
		ar.Capabilities.Set(capability.DeleteRefs)   // nolint: errcheck
	}

	// Set references
	if err := addReferences(st, ar, !forPush); err != nil {
		return err
	}

	return ar.Encode(w)
}
