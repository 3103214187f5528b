package idxfile

import (
	"bytes"
	"fmt"
	"io"

	gogitsync "github.com/sourcehold/gitkit/utils/sync"

	"github.com/sourcehold/gitkit/utils/binary"
)

// Decoder reads and decodes idx files from an input stream.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads the idx file from the decoder's reader and stores the
// decoded data into idx.
func (d *Decoder) Decode(idx *MemoryIndex) error {
	if idx.hashSize == 0 {
		idx.hashSize = defaultHashSize
	}

	br := gogitsync.GetBufioReader(d.r)
	defer gogitsync.PutBufioReader(br)

	if err := readHeader(br, idx); err != nil {
		return err
	}
	if err := readFanout(br, idx); err != nil {
		return err
	}

	count := int(idx.Fanout[fanoutEntries-1])

	names, err := readBlock(br, count*idx.hashLen())
	if err != nil {
		return err
	}
	crcs, err := readBlock(br, count*crcSize)
	if err != nil {
		return err
	}
	offsets32, err := readBlock(br, count*offset32Size)
	if err != nil {
		return err
	}

	bucketSplit(idx, names, crcs, offsets32)

	numOffset64 := countOffset64(offsets32)
	if numOffset64 > 0 {
		idx.Offset64, err = readBlock(br, numOffset64*offset64Size)
		if err != nil {
			return err
		}
	}

	idx.PackfileChecksum, err = binary.ReadHash(br, idx.hashLen())
	if err != nil {
		return fmt.Errorf("%w: reading packfile checksum: %w", ErrInvalidIdxFile, err)
	}
	idx.IdxChecksum, err = binary.ReadHash(br, idx.hashLen())
	if err != nil {
		return fmt.Errorf("%w: reading idx checksum: %w", ErrInvalidIdxFile, err)
	}

	return nil
}

func readHeader(r io.Reader, idx *MemoryIndex) error {
	header := make([]byte, len(idxHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("%w: reading header: %w", ErrInvalidIdxFile, err)
	}
	if !bytes.Equal(header, idxHeader) {
		return fmt.Errorf("%w: invalid signature", ErrInvalidIdxFile)
	}

	version, err := binary.ReadUint32(r)
	if err != nil {
		return fmt.Errorf("%w: reading version: %w", ErrInvalidIdxFile, err)
	}
	if version != VersionSupported {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	idx.Version = version

	return nil
}

func readFanout(r io.Reader, idx *MemoryIndex) error {
	for i := range idx.Fanout {
		v, err := binary.ReadUint32(r)
		if err != nil {
			return fmt.Errorf("%w: reading fanout table: %w", ErrInvalidIdxFile, err)
		}
		idx.Fanout[i] = v
	}

	return nil
}

func readBlock(r io.Reader, size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIdxFile, err)
	}

	return buf, nil
}

// bucketSplit groups the flat names/crcs/offsets tables into
// per-fanout-bucket slices, using idx.Fanout's cumulative counts.
func bucketSplit(idx *MemoryIndex, names, crcs, offsets32 []byte) {
	hashLen := idx.hashLen()

	var buckets int
	for k := 0; k < fanoutEntries; k++ {
		idx.FanoutMapping[k] = noMapping
	}

	idx.Names = make([][]byte, 0, 16)
	idx.CRC32 = make([][]byte, 0, 16)
	idx.Offset32 = make([][]byte, 0, 16)

	var prev int
	for k := 0; k < fanoutEntries; k++ {
		cur := int(idx.Fanout[k])
		if cur == prev {
			continue
		}

		idx.FanoutMapping[k] = buckets
		buckets++

		idx.Names = append(idx.Names, names[prev*hashLen:cur*hashLen])
		idx.CRC32 = append(idx.CRC32, crcs[prev*crcSize:cur*crcSize])
		idx.Offset32 = append(idx.Offset32, offsets32[prev*offset32Size:cur*offset32Size])

		prev = cur
	}
}

func countOffset64(offsets32 []byte) int {
	n := len(offsets32) / offset32Size
	max := 0
	for i := 0; i < n; i++ {
		v := uint32(offsets32[i*4])<<24 | uint32(offsets32[i*4+1])<<16 | uint32(offsets32[i*4+2])<<8 | uint32(offsets32[i*4+3])
		if v&isOffset64Mask != 0 {
			idx := int(v &^ isOffset64Mask)
			if idx+1 > max {
				max = idx + 1
			}
		}
	}

	return max
}
