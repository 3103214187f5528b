package packp

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/format/pktline"
	"github.com/sourcehold/gitkit/plumbing/protocol/packp/capability"
)

// newUlReqEncoder returns an encoder that writes an upload-request
// message to w.
func newUlReqEncoder(w io.Writer) *ulReqEncoder {
	return &ulReqEncoder{w: w}
}

type ulReqEncoder struct {
	w io.Writer
}

// Encode writes ur to the encoder's writer.
func (e *ulReqEncoder) Encode(ur *UploadRequest) error {
	if len(ur.Wants) == 0 {
		return fmt.Errorf("empty wants")
	}

	wants := sortedDedupedHashes(ur.Wants)

	first := "want " + wants[0].String()
	if caps := capsLine(ur.Capabilities); caps != "" {
		first += " " + caps
	}
	if _, err := pktline.Writeln(e.w, first); err != nil {
		return err
	}

	for _, h := range wants[1:] {
		if _, err := pktline.Writef(e.w, "want %s\n", h); err != nil {
			return err
		}
	}

	for _, h := range sortedDedupedHashes(ur.Shallows) {
		if _, err := pktline.Writef(e.w, "shallow %s\n", h); err != nil {
			return err
		}
	}

	if ur.Depth != nil && !ur.Depth.IsZero() {
		if err := e.encodeDepth(ur.Depth); err != nil {
			return err
		}
	}

	if ur.Filter != nil {
		if _, err := pktline.Writef(e.w, "filter %s\n", ur.Filter); err != nil {
			return err
		}
	}

	return pktline.WriteFlush(e.w)
}

func (e *ulReqEncoder) encodeDepth(d Depth) error {
	switch depth := d.(type) {
	case DepthCommits:
		_, err := pktline.Writef(e.w, "deepen %s\n", depth.String())
		return err
	case DepthSince:
		_, err := pktline.Writef(e.w, "deepen-since %d\n", time.Time(depth).Unix())
		return err
	case DepthReference:
		_, err := pktline.Writef(e.w, "deepen-not %s\n", depth.String())
		return err
	default:
		return fmt.Errorf("unsupported depth type %T", d)
	}
}

// sortedDedupedHashes returns hs sorted by their hex representation with
// any repeats removed.
func sortedDedupedHashes(hs []plumbing.Hash) []plumbing.Hash {
	sorted := make([]plumbing.Hash, len(hs))
	copy(sorted, hs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	out := sorted[:0]
	var last plumbing.Hash
	for i, h := range sorted {
		if i > 0 && h == last {
			continue
		}
		out = append(out, h)
		last = h
	}
	return out
}

// capsLine renders caps as a space-separated "name[=value]" token list,
// sorted alphabetically by capability name so the first want-line is
// reproducible regardless of the order capabilities were added in.
func capsLine(caps *capability.List) string {
	if caps == nil {
		return ""
	}

	names := append([]capability.Capability(nil), caps.All()...)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	var parts []string
	for _, c := range names {
		values := caps.Get(c)
		if len(values) == 0 {
			parts = append(parts, string(c))
			continue
		}
		for _, v := range values {
			parts = append(parts, string(c)+"="+v)
		}
	}
	return strings.Join(parts, " ")
}
