package sideband

import (
	"io"

	"github.com/sourcehold/gitkit/plumbing/format/pktline"
)

// Muxer multiplexes pack data onto a side-band stream, splitting it into
// packets no larger than the active Type allows.
type Muxer struct {
	t Type
	w io.Writer
}

// NewMuxer returns a new Muxer that writes packets of the given Type to w.
func NewMuxer(t Type, w io.Writer) *Muxer {
	return &Muxer{t: t, w: w}
}

func (m *Muxer) maxPayload() int {
	if m.t == Sideband64k {
		return pktline.MaxPayloadSize - 1
	}
	return MaxPackedSize
}

// Write implements io.Writer, sending p as one or more PackData packets.
func (m *Muxer) Write(p []byte) (int, error) {
	max := m.maxPayload()
	sent := 0
	for len(p) > 0 {
		n := len(p)
		if n > max {
			n = max
		}

		if _, err := m.WriteChannel(PackData, p[:n]); err != nil {
			return sent, err
		}

		sent += n
		p = p[n:]
	}

	return sent, nil
}

// WriteChannel writes p as a single packet on the given channel.
func (m *Muxer) WriteChannel(ch Channel, p []byte) (int, error) {
	if _, err := pktline.WritePacket(m.w, ch.WithPayload(p)); err != nil {
		return 0, err
	}

	return len(p), nil
}
