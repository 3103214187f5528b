package packp

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/sourcehold/gitkit/plumbing/format/pktline"
)

// ErrInvalidGitProtoRequest is returned by Decode if the input is not a
// valid git-proto-request as defined by the git:// (anonymous) transport.
var ErrInvalidGitProtoRequest = errors.New("invalid git-proto-request")

// GitProtoRequest is the request sent by a client over the anonymous git://
// transport to start a command such as upload-pack or receive-pack.
//
// See https://git-scm.com/docs/pack-protocol#_git_transport
type GitProtoRequest struct {
	RequestCommand string
	Pathname       string
	// Host is optional, it is the name the client wants to access, with no
	// port number.
	Host string
	// ExtraParams are optional extra parameters, like "version=1".
	ExtraParams []string
}

func (p *GitProtoRequest) validate() error {
	if p.RequestCommand == "" || p.Pathname == "" {
		return ErrInvalidGitProtoRequest
	}

	return nil
}

// Encode writes the git-proto-request to w.
func (p *GitProtoRequest) Encode(w io.Writer) error {
	if err := p.validate(); err != nil {
		return err
	}

	req := fmt.Sprintf("%s %s\x00", p.RequestCommand, p.Pathname)
	if p.Host != "" {
		req += fmt.Sprintf("host=%s\x00", p.Host)
	}

	if len(p.ExtraParams) > 0 {
		req += "\x00"
		for _, param := range p.ExtraParams {
			req += param + "\x00"
		}
	}

	_, err := pktline.WriteString(w, req)
	return err
}

// Decode reads a git-proto-request from r.
func (p *GitProtoRequest) Decode(r io.Reader) error {
	_, line, err := pktline.ReadLine(r)
	if err != nil {
		return err
	}

	parts := bytes.Split(line, []byte{0})
	if len(parts) < 2 {
		return ErrInvalidGitProtoRequest
	}

	first := bytes.SplitN(parts[0], []byte(" "), 2)
	if len(first) != 2 {
		return ErrInvalidGitProtoRequest
	}

	p.RequestCommand = string(first[0])
	p.Pathname = string(first[1])

	rest := parts[1:]
	for i, part := range rest {
		if len(part) == 0 {
			p.ExtraParams = append(p.ExtraParams, stringsNonEmpty(rest[i+1:])...)
			break
		}

		if bytes.HasPrefix(part, []byte("host=")) {
			p.Host = string(part[len("host="):])
			continue
		}
	}

	return p.validate()
}

func stringsNonEmpty(bs [][]byte) []string {
	var out []string
	for _, b := range bs {
		if len(b) == 0 {
			continue
		}
		out = append(out, string(b))
	}
	return out
}
