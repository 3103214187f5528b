package packp

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sourcehold/gitkit/plumbing/format/pktline"
	"github.com/sourcehold/gitkit/plumbing/protocol/packp/capability"
)

// newUlReqDecoder returns a decoder that reads an upload-request message
// from r.
func newUlReqDecoder(r io.Reader) *ulReqDecoder {
	return &ulReqDecoder{r: r}
}

type ulReqDecoder struct {
	r io.Reader
}

// Decode reads the upload-request message from the decoder's reader into
// ur, then arranges for any haves/done negotiation that follows to be
// delivered on ur.HavesUR.
func (d *ulReqDecoder) Decode(ur *UploadRequest) error {
	if err := d.decodeFirstWant(ur); err != nil {
		return err
	}

	if err := d.decodeRest(ur); err != nil {
		return err
	}

	d.startHaves(ur)
	return nil
}

func (d *ulReqDecoder) decodeFirstWant(ur *UploadRequest) error {
	_, payload, err := pktline.ReadLine(d.r)
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("pkt-line 1: %w", err)
		}
		return err
	}

	text := strings.TrimRight(string(payload), "\n")
	if !strings.HasPrefix(text, "want ") {
		return fmt.Errorf("missing 'want ' prefix: %q", text)
	}

	rest := text[len("want "):]
	hashText, capsText := rest, ""
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		hashText, capsText = rest[:i], rest[i+1:]
	}

	hash, err := parseHash(hashText)
	if err != nil {
		return fmt.Errorf("invalid hash: %s", err)
	}
	ur.Wants = append(ur.Wants, hash)

	for _, tok := range strings.Fields(capsText) {
		name, values := readCapability([]byte(tok))
		if err := ur.Capabilities.Add(capability.Capability(name), values...); err != nil {
			return err
		}
	}

	return nil
}

func (d *ulReqDecoder) decodeRest(ur *UploadRequest) error {
	for {
		l, payload, err := pktline.ReadLine(d.r)
		if err != nil {
			return err
		}

		if l == pktline.Flush {
			return nil
		}

		text := strings.TrimRight(string(payload), "\n")

		switch {
		case strings.HasPrefix(text, "want "):
			hash, err := parseHash(text[len("want "):])
			if err != nil {
				return fmt.Errorf("malformed hash: %s", err)
			}
			ur.Wants = append(ur.Wants, hash)

		case strings.HasPrefix(text, "shallow "):
			hash, err := parseHash(text[len("shallow "):])
			if err != nil {
				return fmt.Errorf("malformed hash: %s", err)
			}
			ur.Shallows = append(ur.Shallows, hash)

		case strings.HasPrefix(text, "deepen-since "):
			secs, err := strconv.ParseInt(text[len("deepen-since "):], 10, 64)
			if err != nil {
				return err
			}
			ur.Depth = DepthSince(time.Unix(secs, 0).UTC())

		case strings.HasPrefix(text, "deepen-not "):
			ur.Depth = DepthReference(text[len("deepen-not "):])

		case strings.HasPrefix(text, "deepen "):
			n, err := strconv.Atoi(text[len("deepen "):])
			if err != nil {
				return err
			}
			if n < 0 {
				return fmt.Errorf("negative depth: %d", n)
			}
			ur.Depth = DepthCommits(n)

		case strings.HasPrefix(text, "deepen"):
			return fmt.Errorf("unexpected deepen spec: %q", text)

		case strings.HasPrefix(text, "filter "):
			f, err := parseFilter(text[len("filter "):])
			if err != nil {
				return err
			}
			ur.Filter = f

		default:
			return fmt.Errorf("unexpected payload: %q", text)
		}
	}
}

// startHaves spawns the goroutine that decodes the haves/done negotiation
// trailing the upload-request, delivering each batch on ur.HavesUR.
func (d *ulReqDecoder) startHaves(ur *UploadRequest) {
	ch := make(chan *UploadHaves)
	ur.HavesUR = ch

	go func() {
		defer close(ch)

		for {
			uh := &UploadHaves{}
			if err := uh.Decode(d.r); err != nil {
				return
			}

			if len(uh.Haves) == 0 && !uh.Done {
				return
			}

			ch <- uh

			if uh.Done {
				return
			}
		}
	}()
}
