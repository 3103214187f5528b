package plumbing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidReferenceName is returned when a ref name fails Validate.
var ErrInvalidReferenceName = errors.New("invalid reference name")

// ErrReferenceNotFound is returned when a reference is not found.
var ErrReferenceNotFound = errors.New("reference not found")

const (
	refPrefix       = "refs/"
	refHeadPrefix   = refPrefix + "heads/"
	refTagPrefix    = refPrefix + "tags/"
	refRemotePrefix = refPrefix + "remotes/"
	refNotePrefix   = refPrefix + "notes/"
	symrefPrefix    = "ref: "
)

// HEAD is the name of the reference that points at the currently checked
// out branch.
const HEAD ReferenceName = "HEAD"

// ReferenceType is the kind of value a Reference holds: either a direct
// hash or a symbolic pointer to another reference.
type ReferenceType int8

const (
	InvalidReference  ReferenceType = 0
	HashReference     ReferenceType = 1
	SymbolicReference ReferenceType = 2
)

func (r ReferenceType) String() string {
	switch r {
	case HashReference:
		return "hash-reference"
	case SymbolicReference:
		return "symbolic-reference"
	default:
		return "invalid-reference"
	}
}

// ReferenceName is a textual reference path, e.g. "refs/heads/master".
type ReferenceName string

// Short returns the last path component of the name, dropping the
// well-known refs/heads, refs/tags, refs/remotes and refs/notes
// prefixes where present.
func (r ReferenceName) Short() string {
	s := string(r)
	res := s
	for _, prefix := range []string{
		refHeadPrefix, refTagPrefix, refRemotePrefix, refNotePrefix,
	} {
		if strings.HasPrefix(s, prefix) {
			res = s[len(prefix):]
		}
	}
	return res
}

func (r ReferenceName) String() string { return string(r) }

// IsBranch returns whether r is a branch reference.
func (r ReferenceName) IsBranch() bool {
	return strings.HasPrefix(string(r), refHeadPrefix)
}

// IsNote returns whether r is a note reference.
func (r ReferenceName) IsNote() bool {
	return strings.HasPrefix(string(r), refNotePrefix)
}

// IsRemote returns whether r is a remote-tracking reference.
func (r ReferenceName) IsRemote() bool {
	return strings.HasPrefix(string(r), refRemotePrefix)
}

// IsTag returns whether r is a tag reference.
func (r ReferenceName) IsTag() bool {
	return strings.HasPrefix(string(r), refTagPrefix)
}

// Validate checks r against the same rules git-check-ref-format applies
// (a practical subset sufficient to reject ambiguous or unsafe names).
func (r ReferenceName) Validate() error {
	s := string(r)

	if s == string(HEAD) {
		return nil
	}

	if !strings.HasPrefix(s, refPrefix) {
		return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
	}

	rest := strings.TrimPrefix(s, refPrefix)
	if rest == "" {
		return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
	}

	components := strings.Split(rest, "/")
	for _, c := range components {
		if err := validateRefComponent(c); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
	}

	// Branch and tag short names may not begin with "-": it would be
	// ambiguous with a command-line flag.
	if strings.HasPrefix(s, refHeadPrefix) || strings.HasPrefix(s, refTagPrefix) {
		if strings.HasPrefix(r.Short(), "-") {
			return fmt.Errorf("%w: %q", ErrInvalidReferenceName, s)
		}
	}

	return nil
}

func validateRefComponent(c string) error {
	if c == "" {
		return ErrInvalidReferenceName
	}
	if c == "." || c == ".." {
		return ErrInvalidReferenceName
	}
	if strings.HasPrefix(c, ".") {
		return ErrInvalidReferenceName
	}
	if strings.HasSuffix(c, ".lock") || strings.HasSuffix(c, ".") {
		return ErrInvalidReferenceName
	}
	if strings.Contains(c, "..") {
		return ErrInvalidReferenceName
	}
	if strings.Contains(c, "@{") {
		return ErrInvalidReferenceName
	}
	if c == "@" {
		return ErrInvalidReferenceName
	}
	for _, r := range c {
		switch r {
		case ' ', '~', '^', ':', '?', '*', '[', '\\', '\t', '\n':
			return ErrInvalidReferenceName
		}
		if r < 0x20 || r == 0x7f {
			return ErrInvalidReferenceName
		}
	}
	return nil
}

// NewBranchReferenceName builds the fully qualified name of branch n.
func NewBranchReferenceName(n string) ReferenceName {
	return ReferenceName(refHeadPrefix + n)
}

// NewNoteReferenceName builds the fully qualified name of note n.
func NewNoteReferenceName(n string) ReferenceName {
	return ReferenceName(refNotePrefix + n)
}

// NewRemoteReferenceName builds the fully qualified name of branch n on
// remote r.
func NewRemoteReferenceName(r, n string) ReferenceName {
	return ReferenceName(refRemotePrefix + r + "/" + n)
}

// NewRemoteHEADReferenceName builds the fully qualified name of the HEAD
// reference of remote r.
func NewRemoteHEADReferenceName(r string) ReferenceName {
	return ReferenceName(refRemotePrefix + r + "/HEAD")
}

// NewTagReferenceName builds the fully qualified name of tag n.
func NewTagReferenceName(n string) ReferenceName {
	return ReferenceName(refTagPrefix + n)
}

// Reference is a Git reference: a name bound to either an object hash or
// the name of another reference.
type Reference struct {
	t      ReferenceType
	n      ReferenceName
	h      Hash
	target ReferenceName
}

// NewReferenceFromStrings creates a Reference from its on-disk textual
// representation, dispatching on whether the target looks like a
// symbolic-ref line ("ref: ...") or a plain hash.
func NewReferenceFromStrings(name, target string) *Reference {
	n := ReferenceName(name)

	if strings.HasPrefix(target, symrefPrefix) {
		target := ReferenceName(strings.TrimPrefix(target, symrefPrefix))
		return NewSymbolicReference(n, target)
	}

	return NewHashReference(n, NewHash(target))
}

// NewSymbolicReference creates a new symbolic reference named n pointing
// at target.
func NewSymbolicReference(n, target ReferenceName) *Reference {
	return &Reference{t: SymbolicReference, n: n, target: target}
}

// NewHashReference creates a new hash reference named n pointing at h.
func NewHashReference(n ReferenceName, h Hash) *Reference {
	return &Reference{t: HashReference, n: n, h: h}
}

// Type returns the type of the reference.
func (r *Reference) Type() ReferenceType { return r.t }

// Name returns the name of the reference.
func (r *Reference) Name() ReferenceName { return r.n }

// Hash returns the hash of a hash reference, the zero hash otherwise.
func (r *Reference) Hash() Hash { return r.h }

// Target returns the target of a symbolic reference, the empty name
// otherwise.
func (r *Reference) Target() ReferenceName { return r.target }

// Strings returns the on-disk textual representation of the reference
// as a (name, target) pair, suitable for NewReferenceFromStrings.
func (r *Reference) Strings() [2]string {
	var o [2]string
	o[0] = r.Name().String()

	switch r.Type() {
	case HashReference:
		o[1] = r.Hash().String()
	case SymbolicReference:
		o[1] = symrefPrefix + r.Target().String()
	}

	return o
}

func (r *Reference) String() string {
	if r == nil {
		return ""
	}

	s := r.Strings()
	return fmt.Sprintf("%s %s", s[1], s[0])
}
