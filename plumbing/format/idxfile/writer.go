package idxfile

import (
	"bytes"
	"sort"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/utils/binary"
)

type writerObject struct {
	hash   plumbing.Hash
	offset int64
	crc    uint32
}

type writerObjects []writerObject

func (o writerObjects) Len() int           { return len(o) }
func (o writerObjects) Less(i, j int) bool { return bytes.Compare(o[i].hash.Bytes(), o[j].hash.Bytes()) < 0 }
func (o writerObjects) Swap(i, j int)      { o[i], o[j] = o[j], o[i] }

// Writer implements packfile.Observer, collecting the data needed to
// build an Index as a packfile is scanned.
type Writer struct {
	count    uint32
	checksum plumbing.Hash
	objects  writerObjects
}

// OnHeader implements packfile.Observer.
func (w *Writer) OnHeader(count uint32) error {
	w.count = count
	w.objects = make(writerObjects, 0, count)
	return nil
}

// OnInflatedObjectHeader implements packfile.Observer.
func (w *Writer) OnInflatedObjectHeader(t plumbing.ObjectType, objSize, pos int64) error {
	return nil
}

// OnInflatedObjectContent implements packfile.Observer.
func (w *Writer) OnInflatedObjectContent(h plumbing.Hash, pos int64, crc uint32, content []byte) error {
	w.Add(h, pos, crc)
	return nil
}

// OnFooter implements packfile.Observer.
func (w *Writer) OnFooter(h plumbing.Hash) error {
	w.checksum = h
	return nil
}

// Add records a single object's hash, packfile offset and CRC32.
func (w *Writer) Add(h plumbing.Hash, offset int64, crc uint32) {
	w.objects = append(w.objects, writerObject{h, offset, crc})
}

// Index builds a MemoryIndex from the objects collected so far.
func (w *Writer) Index() (*MemoryIndex, error) {
	sort.Sort(w.objects)

	idx := NewMemoryIndex(w.checksum.Size())
	idx.PackfileChecksum = w.checksum

	var names, crcs, offsets bytes.Buffer
	var offset64 bytes.Buffer
	var numOffset64 int

	bucket := -1
	last := -1
	for i, o := range w.objects {
		fan := int(o.hash.Bytes()[0])

		for j := last + 1; j < fan; j++ {
			idx.Fanout[j] = uint32(i)
		}
		idx.Fanout[fan] = uint32(i + 1)

		if last != fan {
			if bucket >= 0 {
				idx.Names = append(idx.Names, append([]byte(nil), names.Bytes()...))
				idx.CRC32 = append(idx.CRC32, append([]byte(nil), crcs.Bytes()...))
				idx.Offset32 = append(idx.Offset32, append([]byte(nil), offsets.Bytes()...))
				names.Reset()
				crcs.Reset()
				offsets.Reset()
			}

			bucket++
			idx.FanoutMapping[fan] = bucket
			last = fan
		}

		names.Write(o.hash.Bytes())
		_ = binary.WriteUint32(&crcs, o.crc)

		if o.offset > 0x7fffffff {
			_ = binary.WriteUint32(&offsets, isOffset64Mask|uint32(numOffset64))
			_ = binary.Write(&offset64, uint64(o.offset))
			numOffset64++
		} else {
			_ = binary.WriteUint32(&offsets, uint32(o.offset))
		}
	}

	if bucket >= 0 {
		idx.Names = append(idx.Names, append([]byte(nil), names.Bytes()...))
		idx.CRC32 = append(idx.CRC32, append([]byte(nil), crcs.Bytes()...))
		idx.Offset32 = append(idx.Offset32, append([]byte(nil), offsets.Bytes()...))
	}

	for j := last + 1; j < fanoutEntries; j++ {
		idx.Fanout[j] = uint32(len(w.objects))
	}

	idx.Offset64 = offset64.Bytes()

	return idx, nil
}
