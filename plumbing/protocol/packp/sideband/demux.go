package sideband

import (
	"fmt"
	"io"

	"github.com/sourcehold/gitkit/plumbing/format/pktline"
)

// Demuxer decodes a side-band stream, exposing the pack-data channel as an
// io.Reader while optionally forwarding progress messages elsewhere.
type Demuxer struct {
	t       Type
	r       io.Reader
	pending []byte

	// Progress, if non-nil, receives the contents of progress-channel
	// packets as they are read.
	Progress io.Writer
}

// NewDemuxer returns a new Demuxer that reads packets of the given Type
// from r.
func NewDemuxer(t Type, r io.Reader) *Demuxer {
	return &Demuxer{t: t, r: r}
}

// Read implements io.Reader, returning pack-data bytes. Progress and error
// packets are consumed transparently; an error-channel packet ends the
// stream with an error.
func (d *Demuxer) Read(p []byte) (int, error) {
	if len(d.pending) == 0 {
		if err := d.fill(); err != nil {
			return 0, err
		}
	}

	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *Demuxer) fill() error {
	for {
		_, payload, err := pktline.ReadPacket(d.r)
		if err != nil {
			return err
		}

		if len(payload) == 0 {
			continue
		}

		ch := Channel(payload[0])
		content := payload[1:]

		switch ch {
		case PackData:
			if d.t == Sideband && len(content) > MaxPackedSize {
				return ErrMaxPackedExceeded
			}
			d.pending = content
			return nil
		case ProgressMessage:
			if d.Progress != nil {
				if _, err := d.Progress.Write(content); err != nil {
					return err
				}
			}
		case ErrorMessage:
			return fmt.Errorf("unexpected error: %s", content)
		default:
			return fmt.Errorf("unknown channel %s", string(payload))
		}
	}
}
