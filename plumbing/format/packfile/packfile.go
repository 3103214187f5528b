package packfile

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	billy "github.com/go-git/go-billy/v5"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/cache"
	"github.com/sourcehold/gitkit/plumbing/format/idxfile"
	"github.com/sourcehold/gitkit/plumbing/storer"
)

// Packfile allows retrieving information from inside a packfile.
type Packfile struct {
	idxfile.Index

	file         billy.File
	fs           billy.Filesystem
	cache        cache.Object
	objectIDSize int

	once    sync.Once
	onceErr error

	m     sync.Mutex
	s     *Scanner
	count int
}

// NewPackfile returns a packfile representation for the given packfile file.
func NewPackfile(file billy.File, opts ...PackfileOption) *Packfile {
	p := &Packfile{
		file:         file,
		cache:        cache.NewObjectLRUDefault(),
		objectIDSize: 20,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// init lazily scans the packfile header, so that NewPackfile itself never
// touches the file.
func (p *Packfile) init() error {
	p.once.Do(func() {
		p.s = NewScanner(p.file, WithObjectIDSize(p.objectIDSize))

		if !p.s.Scan() {
			p.onceErr = p.s.Error()
			if p.onceErr == nil {
				p.onceErr = ErrEmptyPackfile
			}
			return
		}

		header, ok := p.s.Data().Value().(Header)
		if !ok {
			p.onceErr = ErrMalformedPackfile
			return
		}

		p.count = int(header.ObjectsQty)
	})

	return p.onceErr
}

// Get retrieves the encoded object in the packfile with the given hash.
func (p *Packfile) Get(h plumbing.Hash) (plumbing.EncodedObject, error) {
	offset, err := p.FindOffset(h)
	if err != nil {
		return nil, err
	}

	return p.GetByOffset(offset)
}

// GetByOffset retrieves the encoded object from the packfile with the given
// offset.
func (p *Packfile) GetByOffset(o int64) (plumbing.EncodedObject, error) {
	if err := p.init(); err != nil {
		return nil, err
	}

	p.m.Lock()
	defer p.m.Unlock()

	return p.getByOffset(o)
}

// GetSizeByOffset returns the size of the object in the given offset,
// resolving the full delta chain when needed.
func (p *Packfile) GetSizeByOffset(o int64) (int64, error) {
	obj, err := p.GetByOffset(o)
	if err != nil {
		return 0, err
	}

	return obj.Size(), nil
}

func (p *Packfile) getByOffset(o int64) (plumbing.EncodedObject, error) {
	oh, err := p.headerFromOffset(o)
	if err != nil {
		return nil, err
	}

	return p.objectFromHeader(oh)
}

func (p *Packfile) getByHash(h plumbing.Hash) (plumbing.EncodedObject, error) {
	if obj, ok := p.cacheGet(h); ok {
		return obj, nil
	}

	o, err := p.FindOffset(h)
	if err != nil {
		return nil, err
	}

	return p.getByOffset(o)
}

// headerFromOffset seeks the scanner to offset and scans the object entry
// found there. It assumes p.m is held by the caller.
func (p *Packfile) headerFromOffset(offset int64) (ObjectHeader, error) {
	if err := p.s.SeekFromStart(offset); err != nil {
		return ObjectHeader{}, plumbing.ErrObjectNotFound
	}

	if !p.s.Scan() {
		return ObjectHeader{}, plumbing.ErrObjectNotFound
	}

	oh, ok := p.s.Data().Value().(ObjectHeader)
	if !ok {
		return ObjectHeader{}, plumbing.ErrObjectNotFound
	}

	return oh, nil
}

// objectFromHeader materializes the object described by oh, resolving its
// delta chain if needed. It assumes p.m is held by the caller.
func (p *Packfile) objectFromHeader(oh ObjectHeader) (plumbing.EncodedObject, error) {
	if !oh.Type.IsDelta() {
		obj := new(plumbing.MemoryObject)
		obj.SetType(oh.Type)
		obj.SetSize(oh.Size)

		w, err := obj.Writer()
		if err != nil {
			return nil, err
		}

		if err := p.s.WriteObject(&oh, w); err != nil {
			return nil, err
		}

		p.cachePut(obj)
		return obj, nil
	}

	base, err := p.baseFromHeader(oh)
	if err != nil {
		return nil, err
	}

	return p.patch(oh, base)
}

func (p *Packfile) baseFromHeader(oh ObjectHeader) (plumbing.EncodedObject, error) {
	switch oh.Type {
	case plumbing.REFDeltaObject:
		return p.getByHash(oh.Reference)
	case plumbing.OFSDeltaObject:
		return p.getByOffset(oh.OffsetReference)
	default:
		return nil, fmt.Errorf("object at offset %d is not a delta: %w", oh.Offset, plumbing.ErrInvalidType)
	}
}

func (p *Packfile) patch(oh ObjectHeader, base plumbing.EncodedObject) (plumbing.EncodedObject, error) {
	deltaData := bytes.NewBuffer(make([]byte, 0, oh.Size))
	if oh.content.Len() > 0 {
		if _, err := oh.content.WriteTo(deltaData); err != nil {
			return nil, err
		}
	} else if err := p.s.inflateContent(oh.ContentOffset, deltaData); err != nil {
		return nil, err
	}

	obj := new(plumbing.MemoryObject)
	obj.SetType(base.Type())

	if err := ApplyDelta(obj, base, deltaData); err != nil {
		return nil, err
	}

	p.cachePut(obj)
	return obj, nil
}

func (p *Packfile) cacheGet(h plumbing.Hash) (plumbing.EncodedObject, bool) {
	if p.cache == nil {
		return nil, false
	}

	return p.cache.Get(h)
}

func (p *Packfile) cachePut(obj plumbing.EncodedObject) {
	if p.cache == nil {
		return
	}

	p.cache.Put(obj)
}

// getObjectContent returns a reader over the inflated content of the object
// at offset, resolving any delta chain.
func (p *Packfile) getObjectContent(offset int64) (io.ReadCloser, error) {
	obj, err := p.GetByOffset(offset)
	if err != nil {
		return nil, err
	}

	return obj.Reader()
}

// GetAll returns an iterator with all encoded objects in the packfile.
func (p *Packfile) GetAll() (storer.EncodedObjectIter, error) {
	return p.GetByType(plumbing.AnyObject)
}

// GetByType returns an iterator with all encoded objects in the packfile of
// the given type. Only AnyObject, CommitObject, TreeObject, BlobObject and
// TagObject are valid.
func (p *Packfile) GetByType(t plumbing.ObjectType) (storer.EncodedObjectIter, error) {
	switch t {
	case plumbing.AnyObject, plumbing.CommitObject, plumbing.TreeObject,
		plumbing.BlobObject, plumbing.TagObject:
	default:
		return nil, plumbing.ErrInvalidType
	}

	if err := p.init(); err != nil {
		return nil, err
	}

	entries, err := p.EntriesByOffset()
	if err != nil {
		return nil, err
	}

	return &objectIter{p: p, typ: t, iter: entries}, nil
}

// Scanner returns the underlying Scanner, giving low-level access to the
// packfile's objects.
//
// Deprecated: prefer Get, GetByOffset or GetByType.
func (p *Packfile) Scanner() (*Scanner, error) {
	if err := p.init(); err != nil {
		return nil, err
	}

	return p.s, nil
}

// ID returns the ID of the packfile, which is the checksum at the end of it.
func (p *Packfile) ID() (plumbing.Hash, error) {
	if err := p.init(); err != nil {
		return plumbing.ZeroHash, err
	}

	size := p.objectIDSize
	if _, err := p.file.Seek(-int64(size), io.SeekEnd); err != nil {
		return plumbing.ZeroHash, err
	}

	var hash plumbing.Hash
	hash.ResetBySize(size)
	if _, err := hash.ReadFrom(p.file); err != nil {
		return plumbing.ZeroHash, err
	}

	return hash, nil
}

// Close the packfile and its resources.
func (p *Packfile) Close() error {
	return p.file.Close()
}
