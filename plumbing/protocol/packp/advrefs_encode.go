package packp

import (
	"fmt"
	"io"
	"sort"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/format/pktline"
)

// refLine is a single (hash, name) pair to advertise, already carrying any
// "^{}" peeled suffix on the name.
type refLine struct {
	hash plumbing.Hash
	name string
}

// sortedRefLines returns a's references sorted by name, with each
// reference's peeled value, if any, immediately following it.
func (a *AdvRefs) sortedRefLines() []refLine {
	names := make([]string, 0, len(a.References))
	for name := range a.References {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]refLine, 0, len(names)+len(a.Peeled))
	for _, name := range names {
		lines = append(lines, refLine{hash: a.References[name], name: name})
		if peeled, ok := a.Peeled[name]; ok {
			lines = append(lines, refLine{hash: peeled, name: name + "^{}"})
		}
	}

	return lines
}

// Encode writes the advertised-refs message to w.
func (a *AdvRefs) Encode(w io.Writer) error {
	refs := a.sortedRefLines()

	var firstHash plumbing.Hash
	firstName := "capabilities^{}"
	switch {
	case a.Head != nil:
		firstHash, firstName = *a.Head, "HEAD"
	case len(refs) > 0:
		firstHash, firstName = refs[0].hash, refs[0].name
		refs = refs[1:]
	}

	var caps string
	if a.Capabilities != nil {
		caps = a.Capabilities.String()
	}

	first := fmt.Sprintf("%s %s\x00%s\n", firstHash, firstName, caps)
	if _, err := pktline.WriteString(w, first); err != nil {
		return err
	}

	for _, l := range refs {
		if _, err := pktline.Writef(w, "%s %s\n", l.hash, l.name); err != nil {
			return err
		}
	}

	for _, h := range sortedDedupedHashes(a.Shallows) {
		if _, err := pktline.Writef(w, "shallow %s\n", h); err != nil {
			return err
		}
	}

	return pktline.WriteFlush(w)
}
