package packfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	stdsync "sync"

	"github.com/sourcehold/gitkit/plumbing"
	format "github.com/sourcehold/gitkit/plumbing/format/config"
	"github.com/sourcehold/gitkit/plumbing/storer"
	"github.com/sourcehold/gitkit/utils/ioutil"
)

var (
	// ErrReferenceDeltaNotFound is returned when a ref-delta's base object
	// cannot be located by hash, either in the pack or in the attached
	// storage.
	ErrReferenceDeltaNotFound = errors.New("reference delta not found")

	// ErrNotSeekableSource is returned when the parser's input cannot be
	// seeked and no storage was attached, so a delta base that falls
	// outside the in-memory cache cannot be recovered.
	ErrNotSeekableSource = errors.New("parser source is not seekable and storage was not provided")

	// ErrDeltaNotCached is returned when a delta's base was expected in
	// the parser cache but is missing.
	ErrDeltaNotCached = errors.New("delta could not be found in cache")
)

// Parser drives a Scanner over a packfile, resolves every OFS/REF delta it
// encounters against its base, and notifies its Observers of each
// inflated object. idxfile.Writer is the most common Observer, turning a
// Parse call into a pack index.
type Parser struct {
	storage storer.EncodedObjectStorer
	cache   *parserCache

	scanner   *Scanner
	observers []Observer
	hasher    plumbing.Hasher

	checksum plumbing.Hash
	m        stdsync.Mutex
}

// NewParser builds a Parser reading from data. If a storage is attached
// via WithStorage, every resolved delta object is also written there as
// it is produced, letting a single Parse call both reconstruct objects
// and persist them.
func NewParser(data io.Reader, opts ...ParserOption) *Parser {
	p := &Parser{
		hasher: plumbing.NewHasher(format.SHA1, plumbing.AnyObject, 0),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.scanner = NewScanner(data)
	if p.storage != nil {
		p.scanner.storage = p.storage
	}
	p.cache = newParserCache()

	return p
}

// Parse scans the whole packfile, deferring delta objects until their
// base has been seen, then resolves them in two passes (ref-deltas
// before ofs-deltas, mirroring how a thin pack's externally-referenced
// objects must be available before any ofs-delta chain inside the pack
// can be walked).
func (p *Parser) Parse() (plumbing.Hash, error) {
	p.m.Lock()
	defer p.m.Unlock()

	var ofsPending, refPending []*ObjectHeader

	for p.scanner.Scan() {
		switch entry := p.scanner.Data(); entry.Section {
		case HeaderSection:
			header := entry.Value().(Header)
			p.resetCache(int(header.ObjectsQty))
			p.onHeader(header.ObjectsQty)

		case ObjectSection:
			oh := entry.Value().(ObjectHeader)
			switch {
			case oh.Type == plumbing.OFSDeltaObject:
				ofsPending = append(ofsPending, &oh)
			case oh.Type == plumbing.REFDeltaObject:
				refPending = append(refPending, &oh)
			default:
				if err := p.storeOrCache(&oh); err != nil {
					return plumbing.ZeroHash, err
				}
			}

		case FooterSection:
			p.checksum = entry.Value().(plumbing.Hash)
		}
	}

	if p.scanner.objects == 0 {
		return plumbing.ZeroHash, ErrEmptyPackfile
	}

	for _, pending := range [][]*ObjectHeader{refPending, ofsPending} {
		for _, oh := range pending {
			if err := p.processDelta(oh); err != nil {
				return plumbing.ZeroHash, err
			}
		}
	}

	return p.checksum, p.onFooter(p.checksum)
}

// storeOrCache persists oh (if it is a delta and a storage is attached —
// non-delta objects were already stored by the scanner) and records it
// in the parser cache so later deltas can find it as a base, then fans
// the inflated header and content out to every observer.
func (p *Parser) storeOrCache(oh *ObjectHeader) error {
	if p.storage != nil && oh.diskType.IsDelta() {
		w, err := p.storage.RawObjectWriter(oh.Type, oh.Size)
		if err != nil {
			return err
		}
		defer w.Close()

		if _, err := io.Copy(w, bytes.NewReader(oh.content.Bytes())); err != nil {
			return err
		}
	}

	if p.cache != nil {
		p.cache.Add(oh)
	}

	if err := p.onInflatedObjectHeader(oh.Type, oh.Size, oh.Offset); err != nil {
		return err
	}

	return p.onInflatedObjectContent(oh.Hash, oh.Offset, oh.Crc32, nil)
}

func (p *Parser) resetCache(qty int) {
	if p.cache != nil {
		p.cache.Reset(qty)
	}
}

// processDelta locates oh's base (by pack offset for ofs-delta, by hash
// for ref-delta — falling back to a placeholder external reference for a
// thin pack's ref-delta base), applies the delta, and hands the result
// to storeOrCache.
func (p *Parser) processDelta(oh *ObjectHeader) error {
	switch oh.Type {
	case plumbing.OFSDeltaObject:
		base, ok := p.cache.oiByOffset[oh.OffsetReference]
		if !ok {
			return plumbing.ErrObjectNotFound
		}
		oh.parent = base

	case plumbing.REFDeltaObject:
		base, ok := p.cache.oiByHash[oh.Reference]
		if !ok {
			// Not present in this pack file: treat as a thin-pack
			// external reference, resolved later via storage.
			base = &ObjectHeader{
				Hash:        oh.Reference,
				externalRef: true,
				Type:        plumbing.AnyObject,
				diskType:    plumbing.AnyObject,
			}
		}
		oh.parent = base
		p.cache.oiByHash[oh.Reference] = base

	default:
		return fmt.Errorf("unsupported delta type: %v", oh.Type)
	}

	baseContent, err := p.parentReader(oh.parent)
	if err != nil {
		return err
	}

	deltaData, err := p.deltaPayload(oh)
	if err != nil {
		return err
	}

	w, err := p.cacheWriter(oh)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := applyPatchBaseHeader(oh, baseContent, deltaData, w, nil); err != nil {
		return err
	}

	return p.storeOrCache(oh)
}

// deltaPayload returns oh's raw delta bytes, pulling them from the
// already-buffered content when present or re-inflating from the pack
// otherwise.
func (p *Parser) deltaPayload(oh *ObjectHeader) (io.Reader, error) {
	if oh.content.Len() > 0 {
		var buf bytes.Buffer
		if _, err := oh.content.WriteTo(&buf); err != nil {
			return nil, err
		}
		return &buf, nil
	}

	buf := bytes.NewBuffer(make([]byte, 0, oh.Size))
	if err := p.scanner.inflateContent(oh.ContentOffset, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// parentReader returns the inflated content of a delta's base object,
// preferring an already-stored copy, then the in-memory cache, then
// re-inflating from the pack by seeking — the last option requires a
// seekable scanner and a known content offset.
func (p *Parser) parentReader(parent *ObjectHeader) (io.ReaderAt, error) {
	if p.storage != nil && parent.Hash != plumbing.ZeroHash {
		if obj, err := p.storage.EncodedObject(parent.Type, parent.Hash); err == nil {
			// External references only carry a hash; fill in the real
			// type/size now that the object has been located.
			parent.Type = obj.Type()
			parent.Size = obj.Size()

			r, err := obj.Reader()
			if err == nil {
				buf := bytes.NewBuffer(make([]byte, 0, parent.Size))
				_, err = io.Copy(buf, r)
				r.Close()
				if err == nil {
					return bytes.NewReader(buf.Bytes()), nil
				}
			}
		}
	}

	if p.cache != nil && parent.content.Len() > 0 {
		return bytes.NewReader(parent.content.Bytes()), nil
	}

	if !parent.externalRef && parent.ContentOffset == 0 {
		// Not an external reference and no known offset to seek back to.
		return nil, plumbing.ErrObjectNotFound
	}

	if p.scanner.seeker == nil {
		return nil, plumbing.ErrObjectNotFound
	}

	buf := bytes.NewBuffer(make([]byte, 0, parent.Size))
	if err := p.scanner.inflateContent(parent.ContentOffset, buf); err != nil {
		return nil, ErrReferenceDeltaNotFound
	}
	return bytes.NewReader(buf.Bytes()), nil
}

func (p *Parser) cacheWriter(oh *ObjectHeader) (io.WriteCloser, error) {
	return ioutil.NewWriteCloser(&oh.content, nil), nil
}

// applyPatchBaseHeader applies delta against base and writes the result
// to target, filling in ota's Type/Size/Hash from the reconstruction
// when ota didn't already carry a known hash (i.e. it was itself a
// placeholder external reference).
func applyPatchBaseHeader(ota *ObjectHeader, base io.ReaderAt, delta io.Reader, target io.Writer, wh objectHeaderWriter) error {
	if target == nil {
		return fmt.Errorf("cannot apply patch against nil target")
	}

	typ := ota.Type
	if ota.Hash == plumbing.ZeroHash {
		typ = ota.parent.Type
	}

	size, hash, err := patchDeltaWriter(target, base, delta, typ, wh)
	if err != nil {
		return err
	}

	if ota.Hash == plumbing.ZeroHash {
		ota.Type = typ
		ota.Size = int64(size)
		ota.Hash = hash
	}

	return nil
}

func (p *Parser) forEachObserver(f func(o Observer) error) error {
	for _, o := range p.observers {
		if err := f(o); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) onHeader(count uint32) error {
	return p.forEachObserver(func(o Observer) error {
		return o.OnHeader(count)
	})
}

func (p *Parser) onInflatedObjectHeader(t plumbing.ObjectType, size int64, offset int64) error {
	return p.forEachObserver(func(o Observer) error {
		return o.OnInflatedObjectHeader(t, size, offset)
	})
}

func (p *Parser) onInflatedObjectContent(h plumbing.Hash, offset int64, crc uint32, content []byte) error {
	return p.forEachObserver(func(o Observer) error {
		return o.OnInflatedObjectContent(h, offset, crc, content)
	})
}

func (p *Parser) onFooter(h plumbing.Hash) error {
	return p.forEachObserver(func(o Observer) error {
		return o.OnFooter(h)
	})
}
