package packp

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/protocol/packp/capability"
)

// UploadRequest values represent the information transmitted on a
// upload-request message.  Values from this type are not zero-value
// safe, use the New function instead.
// This is a low level type, use UploadPackRequest instead.
type UploadRequest struct {
	Capabilities *capability.List
	Wants        []plumbing.Hash
	Shallows     []plumbing.Hash
	Depth        Depth
	Filter       Filter

	// HavesUR is populated by Decode once the want/shallow/deepen/filter
	// section has been read. It receives each batch of "have" lines the
	// client sends during negotiation and is closed once a "done" batch
	// or an empty batch is received.
	HavesUR chan *UploadHaves
}

// Depth values stores the desired depth of the requested packfile: see
// DepthCommits, DepthSince and DepthReference.
type Depth interface {
	fmt.Stringer
	IsZero() bool
}

// DepthCommits values stores the maximum number of requested commits in
// the packfile.  Zero means infinite.  A negative value will have
// undefined consequences.
type DepthCommits int

func (d DepthCommits) isDepth() {}

func (d DepthCommits) IsZero() bool {
	return d == 0
}

func (d DepthCommits) String() string {
	return strconv.Itoa(int(d))
}

// DepthSince values requests only commits newer than the specified time.
type DepthSince time.Time

func (d DepthSince) isDepth() {}

func (d DepthSince) IsZero() bool {
	return time.Time(d).IsZero()
}

func (d DepthSince) String() string {
	return time.Time(d).Format(time.RFC3339)
}

// DepthReference requests only commits not to found in the specified reference.
type DepthReference string

func (d DepthReference) isDepth() {}

func (d DepthReference) IsZero() bool {
	return string(d) == ""
}

func (d DepthReference) String() string {
	return string(d)
}

// NewUploadRequest returns a pointer to a new UploadRequest value, ready to be
// used. It has no capabilities, wants or shallows and an infinite depth. Please
// note that to encode an upload-request it has to have at least one wanted hash.
func NewUploadRequest() *UploadRequest {
	return &UploadRequest{
		Capabilities: capability.NewList(),
		Wants:        []plumbing.Hash{},
		Shallows:     []plumbing.Hash{},
		Depth:        DepthCommits(0),
	}
}

// Decode reads the upload-request from r into ur.
func (ur *UploadRequest) Decode(r io.Reader) error {
	return newUlReqDecoder(r).Decode(ur)
}

// Encode writes the upload-request to w.
func (ur *UploadRequest) Encode(w io.Writer) error {
	return newUlReqEncoder(w).Encode(ur)
}
