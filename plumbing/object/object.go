// Package object implements the decoded, typed view of the four object
// kinds (commit, tree, blob, tag) on top of the untyped plumbing.EncodedObject
// representation.
package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/storer"
)

// ErrUnsupportedObject is returned when the requested conversion or
// operation is not supported for the object's actual type.
var ErrUnsupportedObject = errors.New("unsupported object type")

// ErrMaxTreeDepth is returned when a tree exceeds the maximum allowed depth.
var ErrMaxTreeDepth = errors.New("maximum tree depth exceeded")

// Object is the common behaviour of any decoded git object.
type Object interface {
	ID() plumbing.Hash
	Type() plumbing.ObjectType
	Decode(plumbing.EncodedObject) error
	Encode(plumbing.EncodedObject) error
}

// GetObject decodes the stored object named by h into the right concrete
// type (Commit, Tree, Blob or Tag) based on its type.
func GetObject(s storer.EncodedObjectStorer, h plumbing.Hash) (Object, error) {
	o, err := s.EncodedObject(plumbing.AnyObject, h)
	if err != nil {
		return nil, err
	}

	return DecodeObject(s, o)
}

// DecodeObject decodes o into the right concrete Object implementation.
func DecodeObject(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (Object, error) {
	switch o.Type() {
	case plumbing.CommitObject:
		c := &Commit{s: s}
		err := c.Decode(o)
		return c, err
	case plumbing.TreeObject:
		t := &Tree{s: s}
		err := t.Decode(o)
		return t, err
	case plumbing.BlobObject:
		b := &Blob{}
		err := b.Decode(o)
		return b, err
	case plumbing.TagObject:
		t := &Tag{s: s}
		err := t.Decode(o)
		return t, err
	default:
		return nil, plumbing.ErrInvalidType
	}
}

// GetCommit fetches and decodes the commit named by h.
func GetCommit(s storer.EncodedObjectStorer, h plumbing.Hash) (*Commit, error) {
	o, err := s.EncodedObject(plumbing.CommitObject, h)
	if err != nil {
		return nil, err
	}

	c := &Commit{s: s}
	return c, c.Decode(o)
}

// GetTree fetches and decodes the tree named by h.
func GetTree(s storer.EncodedObjectStorer, h plumbing.Hash) (*Tree, error) {
	o, err := s.EncodedObject(plumbing.TreeObject, h)
	if err != nil {
		return nil, err
	}

	t := &Tree{s: s}
	return t, t.Decode(o)
}

// GetBlob fetches and decodes the blob named by h.
func GetBlob(s storer.EncodedObjectStorer, h plumbing.Hash) (*Blob, error) {
	o, err := s.EncodedObject(plumbing.BlobObject, h)
	if err != nil {
		return nil, err
	}

	b := &Blob{}
	return b, b.Decode(o)
}

// GetTag fetches and decodes the annotated tag named by h.
func GetTag(s storer.EncodedObjectStorer, h plumbing.Hash) (*Tag, error) {
	o, err := s.EncodedObject(plumbing.TagObject, h)
	if err != nil {
		return nil, err
	}

	t := &Tag{s: s}
	return t, t.Decode(o)
}

// ObjectIter iterates over decoded objects, built on top of an
// EncodedObjectIter.
type ObjectIter struct {
	s storer.EncodedObjectStorer
	storer.EncodedObjectIter
}

// NewObjectIter returns an iterator decoding every object produced by iter.
func NewObjectIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *ObjectIter {
	return &ObjectIter{s: s, EncodedObjectIter: iter}
}

func (i *ObjectIter) Next() (Object, error) {
	obj, err := i.EncodedObjectIter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeObject(i.s, obj)
}

func (i *ObjectIter) ForEach(cb func(Object) error) error {
	return i.EncodedObjectIter.ForEach(func(o plumbing.EncodedObject) error {
		obj, err := DecodeObject(i.s, o)
		if err != nil {
			return err
		}

		return cb(obj)
	})
}

// Signature records who made a commit or tag, and when.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Decode parses a "Name <email> seconds tz" signature line.
func (s *Signature) Decode(b []byte) {
	open := bytes.LastIndexByte(b, '<')
	close := bytes.LastIndexByte(b, '>')
	if open < 0 || close < 0 || close < open {
		s.decodeNameOnly(b)
		return
	}

	s.Name = strings.TrimSpace(string(b[:open]))
	s.Email = string(b[open+1 : close])

	hasTime := close+2 < len(b)
	if !hasTime {
		return
	}

	timeAndTZ := strings.TrimSpace(string(b[close+1:]))
	fields := strings.Fields(timeAndTZ)
	if len(fields) != 2 && len(fields) != 1 {
		return
	}

	seconds, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return
	}

	s.When = time.Unix(seconds, 0).In(time.UTC)

	if len(fields) == 2 {
		tz := fields[1]
		if loc, err := parseTZOffset(tz); err == nil {
			s.When = s.When.In(loc)
		}
	}
}

func (s *Signature) decodeNameOnly(b []byte) {
	s.Name = strings.TrimSpace(string(b))
}

func parseTZOffset(tz string) (*time.Location, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return nil, fmt.Errorf("invalid timezone offset: %q", tz)
	}

	hours, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return nil, err
	}

	minutes, err := strconv.Atoi(tz[3:5])
	if err != nil {
		return nil, err
	}

	offset := hours*3600 + minutes*60
	if tz[0] == '-' {
		offset = -offset
	}

	return time.FixedZone(tz, offset), nil
}

// Encode writes the signature back in "Name <email> seconds tz" form.
func (s *Signature) Encode(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s <%s> ", s.Name, s.Email); err != nil {
		return err
	}

	if s.When.IsZero() {
		_, err := fmt.Fprint(w, "0 +0000")
		return err
	}

	_, offset := s.When.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}

	_, err := fmt.Fprintf(w, "%d %s%02d%02d", s.When.Unix(), sign, offset/3600, (offset/60)%60)
	return err
}

// String implements fmt.Stringer.
func (s *Signature) String() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}
