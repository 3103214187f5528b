package object

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/filemode"
	"github.com/sourcehold/gitkit/plumbing/storer"
)

// ErrEntryNotFound is returned when a path lookup does not match any entry.
var ErrEntryNotFound = errors.New("entry not found")

// ErrDirectoryNotFound is returned when an intermediate path component is
// not itself a tree.
var ErrDirectoryNotFound = errors.New("directory not found")

// TreeEntry names one child of a Tree: either a file (with its blob mode
// and hash) or a nested Tree.
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
}

// Tree is a flat, ordered list of TreeEntry values, the git representation
// of a directory.
type Tree struct {
	Entries []TreeEntry
	Hash    plumbing.Hash

	s storer.EncodedObjectStorer
	m map[string]*TreeEntry
}

// ID returns the hash of the tree.
func (t *Tree) ID() plumbing.Hash { return t.Hash }

// Type returns plumbing.TreeObject.
func (t *Tree) Type() plumbing.ObjectType { return plumbing.TreeObject }

// Decode transforms an EncodedObject into a Tree, parsing its
// "<mode> <name>\0<20-or-32-byte-hash>" entry records.
func (t *Tree) Decode(o plumbing.EncodedObject) (err error) {
	if o.Type() != plumbing.TreeObject {
		return ErrUnsupportedObject
	}

	t.Hash = o.Hash()
	t.Entries = nil
	t.m = nil

	if o.Size() == 0 {
		return nil
	}

	r, err := o.Reader()
	if err != nil {
		return err
	}
	defer ioClose(r, &err)

	reader := bufio.NewReader(r)
	hashLen := t.Hash.Size()

	for {
		modeAndName, err := reader.ReadString(0)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		modeAndName = modeAndName[:len(modeAndName)-1]
		parts := strings.SplitN(modeAndName, " ", 2)
		if len(parts) != 2 {
			return fmt.Errorf("malformed tree entry: %q", modeAndName)
		}

		mode, err := filemode.New(parts[0])
		if err != nil {
			return err
		}

		hashBytes := make([]byte, hashLen)
		if _, err := io.ReadFull(reader, hashBytes); err != nil {
			return err
		}

		hash, _ := plumbing.FromBytes(hashBytes)
		t.Entries = append(t.Entries, TreeEntry{
			Name: parts[1],
			Mode: mode,
			Hash: hash,
		})
	}

	return nil
}

// Encode writes the tree's entries back out in git's tree format.
func (t *Tree) Encode(o plumbing.EncodedObject) error {
	o.SetType(plumbing.TreeObject)

	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, e := range t.Entries {
		if _, err := fmt.Fprintf(w, "%o %s", e.Mode, e.Name); err != nil {
			return err
		}

		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}

		if _, err := w.Write(e.Hash.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

func (t *Tree) buildMap() {
	if t.m != nil {
		return
	}

	t.m = make(map[string]*TreeEntry, len(t.Entries))
	for i := range t.Entries {
		t.m[t.Entries[i].Name] = &t.Entries[i]
	}
}

// File looks up path (relative to the tree root, '/'-separated) and
// returns it as a File, resolving through intermediate directory trees.
func (t *Tree) File(path string) (*File, error) {
	e, err := t.FindEntry(path)
	if err != nil {
		return nil, ErrEntryNotFound
	}

	blob, err := GetBlob(t.s, e.Hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	return NewFile(path, e.Mode, blob), nil
}

// FindEntry resolves a slash-separated path into the TreeEntry it names,
// descending into subtrees as needed.
func (t *Tree) FindEntry(path string) (*TreeEntry, error) {
	pathParts := strings.Split(path, "/")

	var tree *Tree
	var err error

	for tree = t; len(pathParts) > 1; pathParts = pathParts[1:] {
		if tree, err = tree.dir(pathParts[0]); err != nil {
			return nil, err
		}
	}

	return tree.entry(pathParts[0])
}

func (t *Tree) dir(baseName string) (*Tree, error) {
	entry, err := t.entry(baseName)
	if err != nil {
		return nil, ErrDirectoryNotFound
	}

	obj, err := t.s.EncodedObject(plumbing.TreeObject, entry.Hash)
	if err != nil {
		return nil, ErrDirectoryNotFound
	}

	tree := &Tree{s: t.s}
	if err := tree.Decode(obj); err != nil {
		return nil, err
	}

	return tree, nil
}

func (t *Tree) entry(baseName string) (*TreeEntry, error) {
	t.buildMap()

	entry, ok := t.m[baseName]
	if !ok {
		return nil, ErrEntryNotFound
	}

	return entry, nil
}

// Files returns an iterator over every regular (non-tree, non-submodule)
// blob reachable from this tree, walked depth-first.
func (t *Tree) Files() *FileIter {
	return NewFileIter(t.s, t)
}

// TreeWalker walks a tree (and its subtrees) depth-first, in entry order.
type TreeWalker struct {
	recursive bool
	stack     []*treeEntryIter
	base      string
	seen      map[plumbing.Hash]struct{}
	s         storer.EncodedObjectStorer
}

type treeEntryIter struct {
	t   *Tree
	pos int
}

// NewTreeWalker returns a TreeWalker that walks t. When recursive is true,
// directory entries are transparently descended into instead of yielded.
func NewTreeWalker(t *Tree, recursive bool, seen map[plumbing.Hash]struct{}) *TreeWalker {
	if seen == nil {
		seen = make(map[plumbing.Hash]struct{})
	}

	return &TreeWalker{
		recursive: recursive,
		stack:     []*treeEntryIter{{t: t}},
		seen:      seen,
		s:         t.s,
	}
}

// Next returns the next entry's path and the entry itself, or io.EOF once
// the walk is done.
func (w *TreeWalker) Next() (string, TreeEntry, error) {
	for {
		if len(w.stack) == 0 {
			return "", TreeEntry{}, io.EOF
		}

		current := w.stack[len(w.stack)-1]
		if current.pos >= len(current.t.Entries) {
			w.stack = w.stack[:len(w.stack)-1]
			if len(w.stack) > 0 {
				w.popBase()
			}
			continue
		}

		entry := current.t.Entries[current.pos]
		current.pos++

		path := entry.Name
		if w.base != "" {
			path = w.base + "/" + entry.Name
		}

		if entry.Mode == filemode.Dir && w.recursive {
			if _, ok := w.seen[entry.Hash]; ok {
				continue
			}

			subObj, err := w.s.EncodedObject(plumbing.TreeObject, entry.Hash)
			if err != nil {
				return "", TreeEntry{}, err
			}

			sub := &Tree{s: w.s}
			if err := sub.Decode(subObj); err != nil {
				return "", TreeEntry{}, err
			}

			w.pushBase(entry.Name)
			w.stack = append(w.stack, &treeEntryIter{t: sub})
			continue
		}

		return path, entry, nil
	}
}

func (w *TreeWalker) pushBase(name string) {
	if w.base == "" {
		w.base = name
		return
	}
	w.base = w.base + "/" + name
}

func (w *TreeWalker) popBase() {
	i := strings.LastIndexByte(w.base, '/')
	if i < 0 {
		w.base = ""
		return
	}
	w.base = w.base[:i]
}

// Close releases resources held by the walker.
func (w *TreeWalker) Close() {
	w.stack = nil
}

// ioClose closes c, recording any error into *errp if one has not already
// been recorded.
func ioClose(c io.Closer, errp *error) {
	if cerr := c.Close(); cerr != nil && *errp == nil {
		*errp = cerr
	}
}

// TreeIter iterates over trees decoded from an underlying EncodedObjectIter.
type TreeIter struct {
	s storer.EncodedObjectStorer
	storer.EncodedObjectIter
}

// NewTreeIter wraps iter, decoding every object it produces as a Tree.
func NewTreeIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *TreeIter {
	return &TreeIter{s: s, EncodedObjectIter: iter}
}

// Next decodes and returns the next tree.
func (i *TreeIter) Next() (*Tree, error) {
	obj, err := i.EncodedObjectIter.Next()
	if err != nil {
		return nil, err
	}

	t := &Tree{s: i.s}
	return t, t.Decode(obj)
}

// ForEach calls cb for every remaining tree.
func (i *TreeIter) ForEach(cb func(*Tree) error) error {
	return i.EncodedObjectIter.ForEach(func(obj plumbing.EncodedObject) error {
		t := &Tree{s: i.s}
		if err := t.Decode(obj); err != nil {
			return err
		}

		return cb(t)
	})
}
