package packp

import (
	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/protocol/packp/capability"
)

// Have adds a hash reference to the 'haves' list.
func (u *UploadHaves) Have(h ...plumbing.Hash) {
	u.Haves = append(u.Haves, h...)
}

// UploadPackRequest represents a upload-pack request.
// Zero-value is not safe, use NewUploadPackRequest instead.
type UploadPackRequest struct {
	*UploadRequest
	*UploadHaves
}

// NewUploadPackRequest creates a new UploadPackRequest and returns a pointer.
func NewUploadPackRequest() *UploadPackRequest {
	return &UploadPackRequest{
		UploadHaves:   &UploadHaves{},
		UploadRequest: NewUploadRequest(),
	}
}

// NewUploadPackRequestFromCapabilities returns a new UploadPackRequest with
// the request capabilities filled with the most optimal ones, given the
// server-advertised capabilities adv. It contains no wants or haves.
func NewUploadPackRequestFromCapabilities(adv *capability.List) *UploadPackRequest {
	r := NewUploadPackRequest()

	if adv.Supports(capability.Agent) {
		r.Capabilities.Set(capability.Agent, capability.DefaultAgent())
	}

	return r
}

// IsEmpty returns true if the request has nothing to ask for: every want
// is already covered by a have.
func (r *UploadPackRequest) IsEmpty() bool {
	return isSubset(r.Wants, r.Haves)
}

func isSubset(needle []plumbing.Hash, haystack []plumbing.Hash) bool {
	for _, h := range needle {
		found := false
		for _, oh := range haystack {
			if h == oh {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}
