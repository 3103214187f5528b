package pktline

import "errors"

// Status represents the status of a pktline. Any value greater than 4 is
// considered a data pkt.
type Status = int

const (
	// Err is returned when the pktline has encountered an error.
	Err Status = iota - 1

	// Flush is the numeric value of a flush packet. It is returned when the
	// pktline is a flush packet.
	Flush

	// Delim is the numeric value of a delim packet. It is returned when the
	// pktline is a delim packet.
	Delim

	// ResponseEnd is the numeric value of a response-end packet. It is
	// returned when the pktline is a response-end packet.
	ResponseEnd
)

const (
	// lenSize is the number of hex digits used to encode a pkt-line length.
	lenSize = 4

	// MaxPacketSize is the maximum amount of bytes a pkt-line can hold,
	// length prefix included.
	MaxPacketSize = 65520

	// MaxPayloadSize is the maximum amount of payload bytes a pkt-line can
	// hold, length prefix excluded.
	MaxPayloadSize = MaxPacketSize - lenSize

	// OversizePayloadMax is the largest payload length ParseLength will
	// accept before reporting ErrInvalidPktLen.
	OversizePayloadMax = MaxPayloadSize

	// MaxSize is an alias of MaxPacketSize kept for callers written against
	// the pre-rename API.
	MaxSize = MaxPacketSize
)

var (
	// Empty is an empty pkt-line payload.
	Empty = []byte{}

	// FlushPkt are the contents of a flush-pkt pkt-line.
	FlushPkt = []byte{'0', '0', '0', '0'}

	// DelimPkt are the contents of a delim-pkt pkt-line.
	DelimPkt = []byte{'0', '0', '0', '1'}

	// ResponseEndPkt are the contents of a response-end-pkt pkt-line.
	ResponseEndPkt = []byte{'0', '0', '0', '2'}

	// emptyPkt is the length prefix of a pkt-line with an empty payload.
	emptyPkt = []byte{'0', '0', '0', '4'}
)

// FlushString is the wire representation of a flush-pkt, for use when
// composing raw pkt-line text in string literals.
const FlushString = "0000"

var (
	// ErrInvalidPktLen is returned by ParseLength or a reader when a
	// pkt-line length prefix is malformed or out of range.
	ErrInvalidPktLen = errors.New("invalid pkt-len found")

	// ErrPayloadTooLong is returned by a writer when the given payload
	// exceeds MaxPayloadSize.
	ErrPayloadTooLong = errors.New("payload is too long")
)
