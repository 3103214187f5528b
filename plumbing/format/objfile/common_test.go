package objfile

import (
	"bytes"
	"encoding/base64"

	"github.com/sourcehold/gitkit/plumbing"
)

type objfileFixture struct {
	hash    string
	content string
	data    string
	t       plumbing.ObjectType
}

var objfileFixtures []objfileFixture

func init() {
	raw := []struct {
		content string
		t       plumbing.ObjectType
	}{
		{"test content\n", plumbing.BlobObject},
		{"", plumbing.BlobObject},
		{"tree 83\x00100644 .gitignore\x00fake-hash", plumbing.CommitObject},
	}

	for _, r := range raw {
		buf := &bytes.Buffer{}
		w := NewWriter(buf)
		if err := w.WriteHeader(r.t, int64(len(r.content))); err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(r.content)); err != nil {
			panic(err)
		}
		if err := w.Close(); err != nil {
			panic(err)
		}

		objfileFixtures = append(objfileFixtures, objfileFixture{
			hash:    w.Hash().String(),
			content: base64.StdEncoding.EncodeToString([]byte(r.content)),
			data:    base64.StdEncoding.EncodeToString(buf.Bytes()),
			t:       r.t,
		})
	}
}
