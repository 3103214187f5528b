package packp

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/stretchr/testify/suite"
)

type ServerResponseSuite struct {
	suite.Suite
}

func TestServerResponseSuite(t *testing.T) {
	suite.Run(t, new(ServerResponseSuite))
}

func (s *ServerResponseSuite) TestDecodeNAK() {
	raw := "0008NAK\n"

	sr := &ServerResponse{}
	err := sr.Decode(bufio.NewReader(bytes.NewBufferString(raw)), false)
	s.NoError(err)

	s.Len(sr.ACKs, 0)
}

func (s *ServerResponseSuite) TestDecodeACK() {
	raw := "0031ACK 6ecf0ef2c2dffb796033e5a02219af86ec6584e5\n"

	sr := &ServerResponse{}
	err := sr.Decode(bufio.NewReader(bytes.NewBufferString(raw)), false)
	s.NoError(err)

	s.Len(sr.ACKs, 1)
	s.Equal(plumbing.NewHash("6ecf0ef2c2dffb796033e5a02219af86ec6584e5"), sr.ACKs[0])
}

func (s *ServerResponseSuite) TestDecodeACKThenPack() {
	raw := "0031ACK 6ecf0ef2c2dffb796033e5a02219af86ec6584e5\nPACK0000"

	sr := &ServerResponse{}
	err := sr.Decode(bufio.NewReader(bytes.NewBufferString(raw)), false)
	s.NoError(err)

	s.Len(sr.ACKs, 1)
}

func (s *ServerResponseSuite) TestDecodeMultiACKUnsupported() {
	raw := "0008NAK\n"

	sr := &ServerResponse{}
	err := sr.Decode(bufio.NewReader(bytes.NewBufferString(raw)), true)
	s.Error(err)
}

func (s *ServerResponseSuite) TestDecodeMalformed() {
	raw := "0029ACK 6ecf0ef2c2dffb796033e5a02219af86ec6584e\n"

	sr := &ServerResponse{}
	err := sr.Decode(bufio.NewReader(bytes.NewBufferString(raw)), false)
	s.Error(err)
}

func (s *ServerResponseSuite) TestEncodeNAK() {
	sr := &ServerResponse{}
	b := bytes.NewBuffer(nil)
	s.NoError(sr.Encode(b))
	s.Equal("0008NAK\n", b.String())
}

func (s *ServerResponseSuite) TestEncodeACK() {
	sr := &ServerResponse{
		ACKs: []plumbing.Hash{plumbing.NewHash("6ecf0ef2c2dffb796033e5a02219af86ec6584e5")},
	}
	b := bytes.NewBuffer(nil)
	s.NoError(sr.Encode(b))
	s.Equal("0031ACK 6ecf0ef2c2dffb796033e5a02219af86ec6584e5\n", b.String())
}

func (s *ServerResponseSuite) TestEncodeMultiACKUnsupported() {
	sr := &ServerResponse{
		ACKs: []plumbing.Hash{
			plumbing.NewHash("6ecf0ef2c2dffb796033e5a02219af86ec6584e1"),
			plumbing.NewHash("6ecf0ef2c2dffb796033e5a02219af86ec6584e2"),
		},
	}
	b := bytes.NewBuffer(nil)
	s.Error(sr.Encode(b))
}
