package packfile

import (
	"sort"

	"github.com/sourcehold/gitkit/plumbing"
	"github.com/sourcehold/gitkit/plumbing/storer"
)

// maxDepth bounds delta chain length: a delta whose chain depth would reach
// maxDepth is not produced.
const maxDepth = 50

// deltaSizeFactor is used to derive the maximum allowed delta payload size
// from the size of the object it would replace.
const deltaSizeFactor = 2

// deltaSelector picks delta bases for a set of objects about to be packed,
// trading off encode time against the resulting packfile size.
type deltaSelector struct {
	storer storer.EncodedObjectStorer
}

func newDeltaSelector(s storer.EncodedObjectStorer) *deltaSelector {
	return &deltaSelector{storer: s}
}

// byTypeAndSize orders objects so that same-typed objects are adjacent and,
// within a type, larger objects come first, making good delta bases more
// likely to fall inside the sliding window of a nearby smaller object. Blobs
// are grouped before trees and commits, since file content deltas better
// than the other object kinds.
type byTypeAndSize []*ObjectToPack

func (s byTypeAndSize) Len() int      { return len(s) }
func (s byTypeAndSize) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byTypeAndSize) Less(i, j int) bool {
	if s[i].Object.Type() != s[j].Object.Type() {
		return s[i].Object.Type() > s[j].Object.Type()
	}

	return s[i].Object.Size() > s[j].Object.Size()
}

func (dw *deltaSelector) sort(objs []*ObjectToPack) {
	sort.Stable(byTypeAndSize(objs))
}

// ObjectsToPack resolves hashes to their storage objects, orders them for
// delta selection, and runs a sliding-window pass to pick delta bases.
func (dw *deltaSelector) ObjectsToPack(hashes []plumbing.Hash, deltaWindowSize uint) ([]*ObjectToPack, error) {
	otp, err := dw.objectsToPack(hashes, deltaWindowSize)
	if err != nil {
		return nil, err
	}

	if deltaWindowSize == 0 {
		return otp, nil
	}

	dw.sort(otp)

	if err := dw.walk(otp, deltaWindowSize); err != nil {
		return nil, err
	}

	return otp, nil
}

// objectsToPack resolves hashes to ObjectToPack values, preserving order and
// performing no delta selection.
func (dw *deltaSelector) objectsToPack(hashes []plumbing.Hash, deltaWindowSize uint) ([]*ObjectToPack, error) {
	otp := make([]*ObjectToPack, 0, len(hashes))
	for _, h := range hashes {
		o, err := dw.storer.EncodedObject(plumbing.AnyObject, h)
		if err != nil {
			return nil, err
		}

		otp = append(otp, newObjectToPack(o))
	}

	return otp, nil
}

// walk runs the sliding-window delta search over otp, which must already be
// sorted by type and size. Each object may only be diffed against up to
// deltaWindowSize of its immediate predecessors.
func (dw *deltaSelector) walk(otp []*ObjectToPack, deltaWindowSize uint) error {
	if deltaWindowSize == 0 {
		return nil
	}

	for i, target := range otp {
		start := i - int(deltaWindowSize)
		if start < 0 {
			start = 0
		}

		var bestBase *ObjectToPack
		var bestDelta plumbing.EncodedObject

		for j := i - 1; j >= start; j-- {
			base := otp[j]
			if base.Original.Type() != target.Original.Type() {
				continue
			}

			depth := base.Depth + 1
			limit := dw.deltaSizeLimit(target.Original.Size(), base.Original.Size(), depth, bestBase != nil)
			if limit == 0 {
				continue
			}

			delta, err := GetDelta(base.Original, target.Original)
			if err != nil {
				return err
			}

			if delta.Size() >= limit {
				continue
			}

			if bestBase == nil || delta.Size() < bestDelta.Size() {
				bestBase = base
				bestDelta = delta
			}
		}

		if bestBase != nil {
			otp[i] = newDeltaObjectToPack(bestBase, target.Original, bestDelta)
		}
	}

	return nil
}

// deltaSizeLimit returns the maximum delta payload size worth keeping for an
// object of targetSize bytes at the given chain depth. It returns 0 when no
// delta should be attempted. baseSize and hasBestDelta let later, worse
// candidates be skipped once a good delta has already been found.
func (dw *deltaSelector) deltaSizeLimit(targetSize, baseSize int64, depth int, hasBestDelta bool) int64 {
	if depth >= maxDepth {
		return 0
	}

	if hasBestDelta {
		return baseSize
	}

	if targetSize < 64 {
		return 0
	}

	return targetSize/deltaSizeFactor - 20
}
