package packfile

import (
	"compress/zlib"
	"crypto/sha1"
	"fmt"
	"io"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/storer"
	"github.com/sourcehold/gitkit/utils/binary"
)

// Encoder gets the data from the storage and write it into the writer in PACK
// format
type Encoder struct {
	selector     *deltaSelector
	useRefDeltas bool
	w            *offsetWriter
	zw           *zlib.Writer
	hasher       plumbing.Hasher
	offsets      map[plumbing.Hash]int64
}

// NewEncoder creates a new packfile encoder using a specific Writer and
// EncodedObjectStorer. When useRefDeltas is true, delta entries reference
// their base by hash (ref-delta); otherwise they reference it by its
// already-written offset in the pack (ofs-delta).
func NewEncoder(w io.Writer, s storer.EncodedObjectStorer, useRefDeltas bool) *Encoder {
	h := plumbing.Hasher{
		Hash: sha1.New(),
	}
	mw := io.MultiWriter(w, h)
	ow := newOffsetWriter(mw)
	zw := zlib.NewWriter(mw)
	return &Encoder{
		selector:     newDeltaSelector(s),
		useRefDeltas: useRefDeltas,
		w:            ow,
		zw:           zw,
		hasher:       h,
		offsets:      make(map[plumbing.Hash]int64),
	}
}

// Encode creates a packfile containing all the objects referenced in hashes
// and writes it to the writer in the Encoder. deltaWindowSize bounds how
// many preceding objects each entry is considered as a delta against; zero
// disables delta compression entirely.
func (e *Encoder) Encode(hashes []plumbing.Hash, deltaWindowSize uint) (plumbing.Hash, error) {
	objects, err := e.selector.ObjectsToPack(hashes, deltaWindowSize)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return e.encode(objects)
}

func (e *Encoder) encode(objects []*ObjectToPack) (plumbing.Hash, error) {
	objects = sortForEncoding(objects)

	if err := e.head(len(objects)); err != nil {
		return plumbing.ZeroHash, err
	}

	for _, o := range objects {
		if err := e.entry(o); err != nil {
			return plumbing.ZeroHash, err
		}
	}

	return e.footer()
}

// sortForEncoding breaks any delta cycles among objects and returns them in
// an order where every delta base is written before the entries that refer
// to it, as ofs-delta entries must be.
//
// A cycle can only be broken at an entry whose Original object is still
// available, since breaking it means falling back to writing that entry in
// full instead of as a delta; newDeltaObjectToPack keeps Original around
// until CleanOriginal is called specifically to allow this.
func sortForEncoding(objects []*ObjectToPack) []*ObjectToPack {
	const (
		white = iota
		gray
		black
	)

	color := make(map[*ObjectToPack]int, len(objects))

	var breakCycles func(o *ObjectToPack)
	breakCycles = func(o *ObjectToPack) {
		if color[o] == black {
			return
		}

		color[o] = gray
		if o.IsDelta() {
			if color[o.Base] == gray {
				o.BackToOriginal()
			} else {
				breakCycles(o.Base)
			}
		}
		color[o] = black
	}

	for _, o := range objects {
		breakCycles(o)
	}

	visited := make(map[*ObjectToPack]bool, len(objects))
	ordered := make([]*ObjectToPack, 0, len(objects))

	var visit func(o *ObjectToPack)
	visit = func(o *ObjectToPack) {
		if visited[o] {
			return
		}
		visited[o] = true

		if o.IsDelta() {
			visit(o.Base)
		}
		ordered = append(ordered, o)
	}

	for _, o := range objects {
		visit(o)
	}

	return ordered
}

func (e *Encoder) head(numEntries int) error {
	return binary.Write(
		e.w,
		signature,
		int32(VersionSupported),
		int32(numEntries),
	)
}

func (e *Encoder) entry(o *ObjectToPack) error {
	offset := e.w.Offset()

	typ := o.Object.Type()
	if o.IsDelta() {
		if e.useRefDeltas {
			typ = plumbing.REFDeltaObject
		} else {
			typ = plumbing.OFSDeltaObject
		}
	}

	if err := e.entryHead(typ, o.Object.Size()); err != nil {
		return err
	}

	// Save the position using the original hash, a later delta may need it
	e.offsets[o.Hash()] = offset

	if err := e.writeDeltaHeaderIfAny(o, typ, offset); err != nil {
		return err
	}

	e.zw.Reset(e.w)
	or, err := o.Object.Reader()
	if err != nil {
		return err
	}
	_, err = io.Copy(e.zw, or)
	if err != nil {
		return err
	}

	return e.zw.Close()
}

func (e *Encoder) writeDeltaHeaderIfAny(o *ObjectToPack, typ plumbing.ObjectType, offset int64) error {
	if !o.IsDelta() {
		return nil
	}

	switch typ {
	case plumbing.OFSDeltaObject:
		return e.writeOfsDeltaHeader(offset, o.Base.Hash())
	case plumbing.REFDeltaObject:
		return e.writeRefDeltaHeader(o.Base.Hash())
	}

	return nil
}

func (e *Encoder) writeRefDeltaHeader(source plumbing.Hash) error {
	return binary.Write(e.w, source)
}

func (e *Encoder) writeOfsDeltaHeader(deltaOffset int64, source plumbing.Hash) error {
	// because it is an offset delta, we need the source
	// object position
	offset, ok := e.offsets[source]
	if !ok {
		return fmt.Errorf("delta source not found. Hash: %v", source)
	}

	return binary.WriteVariableWidthInt(e.w, deltaOffset-offset)
}

func (e *Encoder) entryHead(typeNum plumbing.ObjectType, size int64) error {
	t := int64(typeNum)
	header := []byte{}
	c := (t << firstLengthBits) | (size & maskFirstLength)
	size >>= firstLengthBits
	for {
		if size == 0 {
			break
		}
		header = append(header, byte(c|maskContinue))
		c = size & int64(maskLength)
		size >>= lengthBits
	}

	header = append(header, byte(c))
	_, err := e.w.Write(header)

	return err
}

func (e *Encoder) footer() (plumbing.Hash, error) {
	h := e.hasher.Sum()
	return h, binary.Write(e.w, h)
}

type offsetWriter struct {
	w      io.Writer
	offset int64
}

func newOffsetWriter(w io.Writer) *offsetWriter {
	return &offsetWriter{w: w}
}

func (ow *offsetWriter) Write(p []byte) (n int, err error) {
	n, err = ow.w.Write(p)
	ow.offset += int64(n)
	return n, err
}

func (ow *offsetWriter) Offset() int64 {
	return ow.offset
}
