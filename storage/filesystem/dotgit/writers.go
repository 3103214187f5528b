package dotgit

import (
	"fmt"
	"io"

	billy "github.com/go-git/go-billy/v5"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/format/idxfile"
	"github.com/sourcehold/gitkit/plumbing/format/objfile"
	"github.com/sourcehold/gitkit/plumbing/format/packfile"
)

// NewObject returns a writer for a new loose object. The object is staged
// in a temporary file and moved into place, keyed by its hash, once Close
// is called.
func (d *DotGit) NewObject() (*ObjectWriter, error) {
	tmp, err := d.fs.TempFile(objectsPath, "tmp_obj_")
	if err != nil {
		return nil, err
	}

	return &ObjectWriter{
		Writer: objfile.NewWriter(tmp),
		fs:     d.fs,
		tmp:    tmp,
	}, nil
}

// ObjectWriter writes a single loose object to a temporary file, renaming
// it to its content-addressed path once its hash is known.
type ObjectWriter struct {
	*objfile.Writer

	fs  billy.Filesystem
	tmp billy.File
}

// Close flushes the object and moves it to objects/xx/yyyy..., named after
// the object's own hash.
func (w *ObjectWriter) Close() error {
	if err := w.Writer.Close(); err != nil {
		return err
	}

	if err := w.tmp.Close(); err != nil {
		return err
	}

	h := w.Writer.Hash()
	dir := w.fs.Join(objectsPath, h.String()[0:2])
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return w.fs.Rename(w.tmp.Name(), objectPath(h))
}

// NewObjectPack returns a writer for a new packfile. The packfile contents
// are streamed to disk while simultaneously parsed to build its idx, so the
// index is ready as soon as the packfile is fully written.
func (d *DotGit) NewObjectPack() (*PackWriter, error) {
	return newPackWriter(d.fs)
}

// PackWriter is a write target for an incoming packfile. Notify, when set,
// is invoked with the packfile's checksum and its built index once Close
// succeeds.
type PackWriter struct {
	Notify func(h plumbing.Hash, writer *idxfile.Writer)

	fs       billy.Filesystem
	tmp      billy.File
	synced   *syncedReader
	checksum plumbing.Hash
	idxw     *idxfile.Writer
	result   chan error
}

func newPackWriter(fs billy.Filesystem) (*PackWriter, error) {
	tmp, err := fs.TempFile(fs.Join(objectsPath, packPath), "tmp_pack_")
	if err != nil {
		return nil, err
	}

	reader, err := fs.Open(tmp.Name())
	if err != nil {
		return nil, err
	}

	w := &PackWriter{
		fs:     fs,
		tmp:    tmp,
		synced: newSyncedReader(tmp, reader),
		idxw:   &idxfile.Writer{},
		result: make(chan error, 1),
	}

	go w.buildIndex()
	return w, nil
}

func (w *PackWriter) buildIndex() {
	parser := packfile.NewParser(w.synced, packfile.WithScannerObservers(w.idxw))

	checksum, err := parser.Parse()
	if err != nil {
		w.result <- err
		return
	}

	w.checksum = checksum
	w.result <- nil
}

// Write implements io.Writer.
func (w *PackWriter) Write(p []byte) (int, error) {
	return w.synced.Write(p)
}

// Close waits for the index to finish building, then moves the packfile and
// its idx into objects/pack/, named after the packfile's checksum.
func (w *PackWriter) Close() error {
	if err := w.synced.Close(); err != nil {
		return err
	}

	if err := <-w.result; err != nil {
		return err
	}

	if err := w.tmp.Close(); err != nil {
		return err
	}

	base := w.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s", w.checksum))

	idx, err := w.fs.Create(base + idxExt)
	if err != nil {
		return err
	}

	index, err := w.idxw.Index()
	if err != nil {
		idx.Close()
		return err
	}

	if _, err := idxfile.NewEncoder(idx).Encode(index); err != nil {
		idx.Close()
		return err
	}

	if err := idx.Close(); err != nil {
		return err
	}

	if err := w.fs.Rename(w.tmp.Name(), base+packExt); err != nil {
		return err
	}

	if w.Notify != nil {
		w.Notify(w.checksum, w.idxw)
	}

	return nil
}

// Index returns the index built from the packfile's contents. It is only
// valid after Close has returned successfully.
func (w *PackWriter) Index() (*idxfile.MemoryIndex, error) {
	return w.idxw.Index()
}

var _ io.WriteCloser = (*PackWriter)(nil)
var _ io.WriteCloser = (*ObjectWriter)(nil)
