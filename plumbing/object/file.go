package object

import (
	"io"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/filemode"
	"github.com/sourcehold/gitkit/plumbing/storer"
)

// File is a blob with the name and mode under which it appears in some
// tree.
type File struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash

	blob *Blob
}

// NewFile builds a File from path, mode and the blob it points at.
func NewFile(path string, m filemode.FileMode, b *Blob) *File {
	return &File{Name: path, Mode: m, Hash: b.Hash, blob: b}
}

// ID returns the file's content hash.
func (f *File) ID() plumbing.Hash { return f.Hash }

// Size returns the size of the file's content.
func (f *File) Size() int64 { return f.blob.Size }

// Reader returns a reader over the file's content.
func (f *File) Reader() (io.ReadCloser, error) {
	return f.blob.Reader()
}

// Contents returns the whole file content as a string.
func (f *File) Contents() (string, error) {
	r, err := f.Reader()
	if err != nil {
		return "", err
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// IsBinary reports whether the file's content looks binary (contains a NUL
// byte within the first chunk of content).
func (f *File) IsBinary() (bool, error) {
	reader, err := f.Reader()
	if err != nil {
		return false, err
	}
	defer reader.Close()

	buf := make([]byte, 8000)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}

	for _, b := range buf[:n] {
		if b == 0 {
			return true, nil
		}
	}

	return false, nil
}

// Lines returns the file's content split into lines, with line terminators
// stripped.
func (f *File) Lines() ([]string, error) {
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}

	splits := splitLines(content)

	if len(splits) > 0 && splits[len(splits)-1] == "" {
		return splits[:len(splits)-1], nil
	}

	return splits, nil
}

func splitLines(s string) []string {
	var lines []string
	var start int

	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}

	lines = append(lines, s[start:])
	return lines
}

// FileIter walks a tree, yielding every blob (regular file, executable or
// symlink) reachable from it; directory and submodule entries are skipped.
type FileIter struct {
	s      storer.EncodedObjectStorer
	walker *TreeWalker
}

// NewFileIter returns an iterator over the files contained in t.
func NewFileIter(s storer.EncodedObjectStorer, t *Tree) *FileIter {
	return &FileIter{s: s, walker: NewTreeWalker(t, true, make(map[plumbing.Hash]struct{}))}
}

// Next returns the next file, skipping any entry that is not a blob.
func (iter *FileIter) Next() (*File, error) {
	for {
		name, entry, err := iter.walker.Next()
		if err != nil {
			return nil, err
		}

		if !entry.Mode.IsFile() {
			continue
		}

		blob, err := GetBlob(iter.s, entry.Hash)
		if err != nil {
			if err == plumbing.ErrObjectNotFound {
				continue
			}
			return nil, err
		}

		return NewFile(name, entry.Mode, blob), nil
	}
}

// ForEach calls cb for every remaining file, stopping on error or
// storer.ErrStop.
func (iter *FileIter) ForEach(cb func(*File) error) error {
	for {
		f, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(f); err != nil {
			if err == storer.ErrStop {
				return nil
			}
			return err
		}
	}
}

// Close releases resources held by the iterator.
func (iter *FileIter) Close() {
	iter.walker.Close()
}
