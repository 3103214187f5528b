package object

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/storer"
)

// Tag is an annotated tag: a named, signed-or-not pointer at another
// object (usually a commit), carrying its own author and message.
type Tag struct {
	Hash         plumbing.Hash
	Name         string
	Tagger       Signature
	Message      string
	PGPSignature string
	TargetType   plumbing.ObjectType
	Target       plumbing.Hash

	s storer.EncodedObjectStorer
}

// ID returns the hash of the tag object itself.
func (t *Tag) ID() plumbing.Hash { return t.Hash }

// Type returns plumbing.TagObject.
func (t *Tag) Type() plumbing.ObjectType { return plumbing.TagObject }

// Commit returns the tagged object as a Commit, or ErrUnsupportedObject if
// the tag does not point at a commit.
func (t *Tag) Commit() (*Commit, error) {
	if t.TargetType != plumbing.CommitObject {
		return nil, ErrUnsupportedObject
	}

	return GetCommit(t.s, t.Target)
}

// Tree returns the tree the tag ultimately resolves to: directly, if the
// tag points at a tree, or via the tagged commit's tree otherwise.
func (t *Tag) Tree() (*Tree, error) {
	switch t.TargetType {
	case plumbing.TreeObject:
		return GetTree(t.s, t.Target)
	case plumbing.CommitObject:
		c, err := t.Commit()
		if err != nil {
			return nil, err
		}

		return c.Tree()
	default:
		return nil, ErrUnsupportedObject
	}
}

// Blob returns the tagged object as a Blob, or ErrUnsupportedObject if the
// tag does not point at a blob.
func (t *Tag) Blob() (*Blob, error) {
	if t.TargetType != plumbing.BlobObject {
		return nil, ErrUnsupportedObject
	}

	return GetBlob(t.s, t.Target)
}

// Object resolves and returns the tagged object, decoded into its own
// concrete type.
func (t *Tag) Object() (Object, error) {
	o, err := t.s.EncodedObject(t.TargetType, t.Target)
	if err != nil {
		return nil, err
	}

	return DecodeObject(t.s, o)
}

// Decode parses o's raw tag payload into t's fields.
func (t *Tag) Decode(o plumbing.EncodedObject) (err error) {
	if o.Type() != plumbing.TagObject {
		return ErrUnsupportedObject
	}

	t.Hash = o.Hash()
	t.PGPSignature = ""

	r, err := o.Reader()
	if err != nil {
		return err
	}
	defer ioClose(r, &err)

	reader := bufio.NewReader(r)

	var pendingKey, pendingValue string
	hasPending, canContinue := false, false

	flush := func() {
		if !hasPending {
			return
		}
		hasPending = false

		switch pendingKey {
		case "object":
			t.Target = plumbing.NewHash(pendingValue)
		case "type":
			typ, err := plumbing.ParseObjectType(pendingValue)
			if err == nil {
				t.TargetType = typ
			}
		case "tag":
			t.Name = pendingValue
		case "tagger":
			t.Tagger.Decode([]byte(pendingValue))
		case "gpgsig":
			t.PGPSignature = pendingValue
		}
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}

		trimmed := strings.TrimSuffix(line, "\n")

		if trimmed == "" {
			flush()
			break
		}

		if strings.HasPrefix(trimmed, " ") && canContinue {
			pendingValue += "\n" + trimmed[1:]
		} else {
			flush()

			parts := strings.SplitN(trimmed, " ", 2)
			pendingKey = parts[0]
			pendingValue = ""
			canContinue = len(parts) == 2
			if canContinue {
				pendingValue = parts[1]
			}
			hasPending = true
		}

		if err == io.EOF {
			break
		}
	}

	msg, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	t.Message = string(msg)
	return nil
}

// Encode serializes t into o, including its PGP signature if set.
func (t *Tag) Encode(o plumbing.EncodedObject) error {
	return t.encode(o, true)
}

// EncodeWithoutSignature serializes t into o, omitting any PGP signature.
func (t *Tag) EncodeWithoutSignature(o plumbing.EncodedObject) error {
	return t.encode(o, false)
}

func (t *Tag) encode(o plumbing.EncodedObject, includeSig bool) error {
	o.SetType(plumbing.TagObject)

	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := fmt.Fprintf(w, "object %s\n", t.Target.String()); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "type %s\n", t.TargetType.String()); err != nil {
		return err
	}

	if err := writeHeader(w, "tag", t.Name); err != nil {
		return err
	}

	if _, err := fmt.Fprint(w, "tagger "); err != nil {
		return err
	}
	if err := t.Tagger.Encode(w); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return err
	}

	if includeSig && t.PGPSignature != "" {
		if err := writeHeader(w, "gpgsig", strings.TrimSuffix(t.PGPSignature, "\n")); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "\n%s", t.Message)
	return err
}

// String renders the tag the way `git show` would on an annotated tag,
// followed by the tagged object's own summary when it is a commit.
func (t *Tag) String() string {
	obj, _ := t.Object()

	target := ""
	if c, ok := obj.(*Commit); ok {
		target = c.String()
	}

	return fmt.Sprintf(
		"%s %s\nTagger: %s\nDate:   %s\n\n%s\n%s",
		plumbing.TagObject, t.Name, t.Tagger.String(),
		t.Tagger.When.Format(DateFormat),
		t.Message,
		target,
	)
}

// TagIter iterates over tags decoded from an underlying EncodedObjectIter.
type TagIter struct {
	s storer.EncodedObjectStorer
	storer.EncodedObjectIter
}

// NewTagIter wraps iter, decoding every object it produces as a Tag.
func NewTagIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *TagIter {
	return &TagIter{s: s, EncodedObjectIter: iter}
}

// Next decodes and returns the next tag.
func (i *TagIter) Next() (*Tag, error) {
	obj, err := i.EncodedObjectIter.Next()
	if err != nil {
		return nil, err
	}

	t := &Tag{s: i.s}
	return t, t.Decode(obj)
}

// ForEach calls cb for every remaining tag.
func (i *TagIter) ForEach(cb func(*Tag) error) error {
	return i.EncodedObjectIter.ForEach(func(obj plumbing.EncodedObject) error {
		t := &Tag{s: i.s}
		if err := t.Decode(obj); err != nil {
			return err
		}

		return cb(t)
	})
}
