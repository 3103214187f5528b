package object

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/storer"
)

// ErrParentNotFound is returned by Commit.Parent when the requested index
// is out of range.
var ErrParentNotFound = errors.New("commit parent not found")

// DateFormat is the layout used to render the author timestamp in
// Commit.String() and the tagger timestamp in Tag.String().
const DateFormat = "Mon Jan 02 15:04:05 2006 -0700"

// MessageEncoding names the character encoding declared for a commit
// message via its "encoding" header. An empty value means git's default,
// UTF-8, and is never written out explicitly.
type MessageEncoding string

const defaultUtf8CommitMessageEncoding MessageEncoding = ""

// ExtraHeader preserves a commit header this package does not otherwise
// interpret (e.g. "change-id", "committer-offset"), so round-tripping a
// commit never silently drops information.
type ExtraHeader struct {
	Key   string
	Value string
}

// Commit is a point-in-time snapshot of a tree, with authorship metadata
// and a message, forming the edges of the history DAG via ParentHashes.
type Commit struct {
	Hash         plumbing.Hash
	Author       Signature
	Committer    Signature
	PGPSignature string
	MergeTag     string
	Message      string
	TreeHash     plumbing.Hash
	ParentHashes []plumbing.Hash
	Encoding     MessageEncoding
	ExtraHeaders []ExtraHeader

	s storer.EncodedObjectStorer
}

// DecodeCommit decodes o as a Commit, attaching s so Tree/File/Parents can
// resolve further objects.
func DecodeCommit(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (*Commit, error) {
	c := &Commit{s: s}
	if err := c.Decode(o); err != nil {
		return nil, err
	}

	return c, nil
}

// ID returns the hash of the commit.
func (c *Commit) ID() plumbing.Hash { return c.Hash }

// Type returns plumbing.CommitObject.
func (c *Commit) Type() plumbing.ObjectType { return plumbing.CommitObject }

// Tree returns the tree this commit points at.
func (c *Commit) Tree() (*Tree, error) {
	return GetTree(c.s, c.TreeHash)
}

// File looks up path in the commit's tree.
func (c *Commit) File(path string) (*File, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	return tree.File(path)
}

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() int {
	return len(c.ParentHashes)
}

// Less reports whether c sorts before rhs: by committer time, then by
// author time, then by hash.
func (c *Commit) Less(rhs *Commit) bool {
	return c.Committer.When.Before(rhs.Committer.When) ||
		(c.Committer.When.Equal(rhs.Committer.When) &&
			(c.Author.When.Before(rhs.Author.When) ||
				(c.Author.When.Equal(rhs.Author.When) && c.Hash.Compare(rhs.Hash.Bytes()) < 0)))
}

// Parent returns the i-th parent of the commit.
func (c *Commit) Parent(i int) (*Commit, error) {
	if i < 0 || i >= len(c.ParentHashes) {
		return nil, ErrParentNotFound
	}

	return GetCommit(c.s, c.ParentHashes[i])
}

// Parents returns an iterator over the commit's direct parents, in order.
func (c *Commit) Parents() CommitIter {
	return NewCommitIter(c.s,
		storer.NewEncodedObjectLookupIter(c.s, plumbing.CommitObject, c.ParentHashes),
	)
}

// Decode parses o's raw commit payload into c's fields.
func (c *Commit) Decode(o plumbing.EncodedObject) (err error) {
	if o.Type() != plumbing.CommitObject {
		return ErrUnsupportedObject
	}

	c.Hash = o.Hash()
	c.ParentHashes = nil
	c.ExtraHeaders = nil
	c.PGPSignature = ""
	c.MergeTag = ""
	c.Encoding = ""

	r, err := o.Reader()
	if err != nil {
		return err
	}
	defer ioClose(r, &err)

	reader := bufio.NewReader(r)

	var pendingKey, pendingValue string
	hasPending, canContinue := false, false

	flush := func() error {
		if !hasPending {
			return nil
		}
		hasPending = false

		switch pendingKey {
		case "tree":
			c.TreeHash = plumbing.NewHash(pendingValue)
		case "parent":
			c.ParentHashes = append(c.ParentHashes, plumbing.NewHash(pendingValue))
		case "author":
			c.Author.Decode([]byte(pendingValue))
		case "committer":
			c.Committer.Decode([]byte(pendingValue))
		case "encoding":
			c.Encoding = MessageEncoding(pendingValue)
		case "gpgsig":
			c.PGPSignature = pendingValue
		case "mergetag":
			c.MergeTag = pendingValue
		default:
			c.ExtraHeaders = append(c.ExtraHeaders, ExtraHeader{Key: pendingKey, Value: pendingValue})
		}

		return nil
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}

		trimmed := strings.TrimSuffix(line, "\n")

		if trimmed == "" {
			if err := flush(); err != nil {
				return err
			}
			break
		}

		if strings.HasPrefix(trimmed, " ") && canContinue {
			pendingValue += "\n" + trimmed[1:]
		} else {
			if err := flush(); err != nil {
				return err
			}

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

	c.Message = string(msg)
	return nil
}

// Encode serializes c into o, including the PGP signature header if set.
func (c *Commit) Encode(o plumbing.EncodedObject) error {
	return c.encode(o, true)
}

// EncodeWithoutSignature serializes c into o, omitting any PGP signature.
// Useful for producing the payload a signature is computed over.
func (c *Commit) EncodeWithoutSignature(o plumbing.EncodedObject) error {
	return c.encode(o, false)
}

func (c *Commit) encode(o plumbing.EncodedObject, includeSig bool) error {
	o.SetType(plumbing.CommitObject)

	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := fmt.Fprintf(w, "tree %s\n", c.TreeHash.String()); err != nil {
		return err
	}

	for _, p := range c.ParentHashes {
		if _, err := fmt.Fprintf(w, "parent %s\n", p.String()); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprint(w, "author "); err != nil {
		return err
	}
	if err := c.Author.Encode(w); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\ncommitter "); err != nil {
		return err
	}
	if err := c.Committer.Encode(w); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return err
	}

	if c.Encoding != defaultUtf8CommitMessageEncoding {
		if err := writeHeader(w, "encoding", string(c.Encoding)); err != nil {
			return err
		}
	}

	if c.MergeTag != "" {
		if err := writeHeader(w, "mergetag", strings.TrimSuffix(c.MergeTag, "\n")); err != nil {
			return err
		}
	}

	for _, h := range c.ExtraHeaders {
		if err := writeHeader(w, h.Key, h.Value); err != nil {
			return err
		}
	}

	if includeSig && c.PGPSignature != "" {
		if err := writeHeader(w, "gpgsig", strings.TrimSuffix(c.PGPSignature, "\n")); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "\n%s", c.Message); err != nil {
		return err
	}

	return nil
}

// writeHeader writes a (possibly multi-line) header, continuation lines
// prefixed with a single space as git's own format requires. A header
// with an empty value is written as its key alone.
func writeHeader(w io.Writer, key, value string) error {
	lines := strings.Split(value, "\n")

	if key == "" {
		if _, err := fmt.Fprintf(w, " %s\n", lines[0]); err != nil {
			return err
		}
	} else if value == "" {
		if _, err := fmt.Fprintf(w, "%s\n", key); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintf(w, "%s %s\n", key, lines[0]); err != nil {
			return err
		}
	}

	for _, l := range lines[1:] {
		if _, err := fmt.Fprintf(w, " %s\n", l); err != nil {
			return err
		}
	}

	return nil
}

// String renders the commit the way `git show` would, without a diff.
func (c *Commit) String() string {
	return fmt.Sprintf(
		"%s %s\nAuthor: %s\nDate:   %s\n\n%s\n",
		plumbing.CommitObject, c.Hash, c.Author.String(),
		c.Author.When.Format(DateFormat),
		indentMessage(c.Message),
	)
}

func indentMessage(msg string) string {
	lines := strings.Split(msg, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = "    " + l
		}
	}

	return strings.Join(lines, "\n")
}

// CommitIter is a generic closable interface for iterating over commits.
type CommitIter interface {
	Next() (*Commit, error)
	ForEach(func(*Commit) error) error
	Close()
}

type commitIter struct {
	s storer.EncodedObjectStorer
	storer.EncodedObjectIter
}

// NewCommitIter wraps iter, decoding every object it produces as a Commit.
func NewCommitIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) CommitIter {
	return &commitIter{s: s, EncodedObjectIter: iter}
}

func (i *commitIter) Next() (*Commit, error) {
	obj, err := i.EncodedObjectIter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeCommit(i.s, obj)
}

func (i *commitIter) ForEach(cb func(*Commit) error) error {
	return i.EncodedObjectIter.ForEach(func(obj plumbing.EncodedObject) error {
		c, err := DecodeCommit(i.s, obj)
		if err != nil {
			return err
		}

		return cb(c)
	})
}
