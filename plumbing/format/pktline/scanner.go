package pktline

import (
	"errors"
	"io"
)

// Scanner provides a convenient interface for reading the payloads of a
// series of pkt-lines.  It takes an io.Reader providing the source,
// which then can be tokenized through repeated calls to the Scan
// method.
//
// After each Scan call, the Bytes method will return the payload of the
// corresponding pkt-line on a shared buffer, which will be 65516 bytes
// or smaller.  Flush pkt-lines are represented by empty byte slices.
//
// Scanning stops at EOF or the first I/O error.
type Scanner struct {
	r    io.Reader     // The reader provided by the client
	err  error         // Sticky error
	buf  [MaxSize]byte // Buffer used to read the pktlines
	size int           // Encoded length of the last pkt-line, prefix included
	n    int           // Payload bytes of the last pkt-line read into buf
}

// NewScanner returns a new Scanner to read from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{
		r: r,
	}
}

// Err returns the first error encountered by the Scanner.
func (s *Scanner) Err() error {
	return s.err
}

// Scan advances the Scanner to the next pkt-line, whose payload will
// then be available through the Bytes method.  Scanning stops at EOF
// or the first I/O error.  After Scan returns false, the Err method
// will return any error that occurred during scanning, except that if
// it was io.EOF, Err will return nil.
func (s *Scanner) Scan() bool {
	if s.r == nil {
		return false
	}

	size, n, err := s.read()
	s.size, s.n = size, n
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.err = nil
		} else {
			s.err = err
		}
		return false
	}

	return true
}

func (s *Scanner) read() (size, n int, err error) {
	var prefix [lenSize]byte
	if _, err := io.ReadFull(s.r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, 0, ErrInvalidPktLen
		}
		return 0, 0, err
	}

	raw, err := hexDecode(prefix[:])
	if err != nil {
		return 0, 0, err
	}

	switch raw {
	case Flush, Delim, ResponseEnd:
		return raw, 0, nil
	case 3:
		return 0, 0, ErrInvalidPktLen
	}

	if raw > MaxPacketSize {
		return 0, 0, ErrInvalidPktLen
	}

	payloadLen := raw - lenSize
	if payloadLen > len(s.buf) {
		return 0, 0, ErrInvalidPktLen
	}

	if _, err := io.ReadFull(s.r, s.buf[:payloadLen]); err != nil {
		return 0, 0, err
	}

	return raw, payloadLen, nil
}

// Bytes returns the most recent packet generated by a call to Scan.
// The underlying array may point to data that will be overwritten by a
// subsequent call to Scan. It does no allocation.
func (s *Scanner) Bytes() []byte {
	return s.buf[:s.n]
}

// Text returns the most recent packet generated by a call to Scan.
func (s *Scanner) Text() string {
	return string(s.Bytes())
}

// Len returns the encoded length of the most recent packet generated by a
// call to Scan, length prefix included. Flush, delim and response-end
// packets report their respective control values.
func (s *Scanner) Len() int {
	return s.size
}
