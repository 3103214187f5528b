package packfile_test

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/cache"
	"github.com/sourcehold/gitkit/plumbing/format/idxfile"
	. "github.com/sourcehold/gitkit/plumbing/format/packfile"
	"github.com/sourcehold/gitkit/plumbing/storer"
	"github.com/sourcehold/gitkit/storage/filesystem"

	"github.com/go-git/go-billy/v5/memfs"
	fixtures "github.com/go-git/go-git-fixtures/v5"
	"github.com/stretchr/testify/suite"
)

type EncoderAdvancedSuite struct {
	suite.Suite
	fixtures.Suite
}

func TestEncoderAdvancedSuite(t *testing.T) {
	suite.Run(t, new(EncoderAdvancedSuite))
}

func (s *EncoderAdvancedSuite) TestEncodeDecode() {
	if testing.Short() {
		s.T().Skip("skipping test in short mode.")
	}

	fixs := fixtures.Basic().ByTag("packfile").ByTag(".git")
	fixs = append(fixs, fixtures.ByURL("https://github.com/src-d/go-git.git").
		ByTag("packfile").ByTag(".git").One())
	fixs.Test(s.T(), func(f *fixtures.Fixture) {
		storage := filesystem.NewStorage(f.DotGit(), cache.NewObjectLRUDefault())
		s.testEncodeDecode(storage, 10)
	})
}

func (s *EncoderAdvancedSuite) TestEncodeDecodeNoDeltaCompression() {
	if testing.Short() {
		s.T().Skip("skipping test in short mode.")
	}

	fixs := fixtures.Basic().ByTag("packfile").ByTag(".git")
	fixs = append(fixs, fixtures.ByURL("https://github.com/src-d/go-git.git").
		ByTag("packfile").ByTag(".git").One())
	fixs.Test(s.T(), func(f *fixtures.Fixture) {
		storage := filesystem.NewStorage(f.DotGit(), cache.NewObjectLRUDefault())
		s.testEncodeDecode(storage, 0)
	})
}

func (s *EncoderAdvancedSuite) testEncodeDecode(storage storer.Storer, packWindow uint) {
	objIter, err := storage.IterEncodedObjects(plumbing.AnyObject)
	s.Require().NoError(err)

	expectedObjects := map[plumbing.Hash]bool{}
	var hashes []plumbing.Hash
	err = objIter.ForEach(func(o plumbing.EncodedObject) error {
		expectedObjects[o.Hash()] = true
		hashes = append(hashes, o.Hash())
		return nil
	})
	s.Require().NoError(err)

	// Shuffle hashes to avoid the delta selector getting the order right
	// just because the initial order is already correct.
	auxHashes := make([]plumbing.Hash, len(hashes))
	for i, j := range rand.Perm(len(hashes)) {
		auxHashes[j] = hashes[i]
	}
	hashes = auxHashes

	buf := bytes.NewBuffer(nil)
	enc := NewEncoder(buf, storage, false)
	encodeHash, err := enc.Encode(hashes, packWindow)
	s.Require().NoError(err)

	fs := memfs.New()
	f, err := fs.Create("packfile")
	s.Require().NoError(err)

	_, err = f.Write(buf.Bytes())
	s.Require().NoError(err)

	_, err = f.Seek(0, io.SeekStart)
	s.Require().NoError(err)

	w := new(idxfile.Writer)
	parser := NewParser(NewScanner(f), WithScannerObservers(w))

	_, err = parser.Parse()
	s.Require().NoError(err)
	index, err := w.Index()
	s.Require().NoError(err)

	_, err = f.Seek(0, io.SeekStart)
	s.Require().NoError(err)

	p := NewPackfile(f, WithIdx(index), WithFs(fs))

	decodeHash, err := p.ID()
	s.Require().NoError(err)
	s.Equal(decodeHash, encodeHash)

	objIter, err = p.GetAll()
	s.Require().NoError(err)
	obtainedObjects := map[plumbing.Hash]bool{}
	err = objIter.ForEach(func(o plumbing.EncodedObject) error {
		obtainedObjects[o.Hash()] = true
		return nil
	})
	s.Require().NoError(err)
	s.Equal(expectedObjects, obtainedObjects)
}
