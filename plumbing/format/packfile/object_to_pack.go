package packfile

import "github.com/sourcehold/gitkit/plumbing"

// ObjectToPack represents an object that is going to be written into a
// packfile, possibly as a delta against another ObjectToPack in the same
// pack.
type ObjectToPack struct {
	// Object is the payload that will actually be written for this entry:
	// the full object when not a delta, or the delta instructions produced
	// by GetDelta when it is.
	Object plumbing.EncodedObject
	// Base is the ObjectToPack used as the delta base. It is nil if this
	// ObjectToPack isn't going to be written as a delta.
	Base *ObjectToPack
	// Original is the object as it exists outside of the delta chain. The
	// delta selector keeps it populated while deciding on delta bases, but
	// once an entry's final form is settled it may be dropped with
	// CleanOriginal to free the memory it holds; Hash, Type and Size keep
	// working afterwards from the cached values SetOriginal recorded.
	Original plumbing.EncodedObject
	// Depth is the length of the delta chain needed to reconstruct Object,
	// zero if Object is not a delta.
	Depth int

	hash plumbing.Hash
	typ  plumbing.ObjectType
	size int64
}

func newObjectToPack(o plumbing.EncodedObject) *ObjectToPack {
	otp := &ObjectToPack{Object: o}
	otp.SetOriginal(o)
	return otp
}

func newDeltaObjectToPack(base *ObjectToPack, original, delta plumbing.EncodedObject) *ObjectToPack {
	otp := &ObjectToPack{
		Object: delta,
		Base:   base,
		Depth:  base.Depth + 1,
	}
	otp.SetOriginal(original)
	return otp
}

// IsDelta returns whether this object is going to be written as a delta
// against its Base.
func (o *ObjectToPack) IsDelta() bool {
	return o.Base != nil
}

// Hash returns the hash of the original, reconstructed object, whether or
// not Original is still held in memory.
func (o *ObjectToPack) Hash() plumbing.Hash {
	if o.Original != nil {
		return o.Original.Hash()
	}
	return o.hash
}

// Type returns the type of the original, reconstructed object.
func (o *ObjectToPack) Type() plumbing.ObjectType {
	if o.Original != nil {
		return o.Original.Type()
	}
	return o.typ
}

// Size returns the size of the original, reconstructed object.
func (o *ObjectToPack) Size() int64 {
	if o.Original != nil {
		return o.Original.Size()
	}
	return o.size
}

// SetOriginal records obj as the reconstructed object for this entry,
// caching its hash, type and size so they remain available after
// CleanOriginal discards obj itself.
func (o *ObjectToPack) SetOriginal(obj plumbing.EncodedObject) {
	if obj != nil {
		o.hash = obj.Hash()
		o.typ = obj.Type()
		o.size = obj.Size()
	}
	o.Original = obj
}

// CleanOriginal drops the reference to the reconstructed object, letting it
// be garbage collected once nothing else holds it. Hash, Type and Size keep
// reporting the values captured by the last SetOriginal call.
func (o *ObjectToPack) CleanOriginal() {
	o.Original = nil
}

// SetDelta turns this entry into a delta against base, to be written as
// delta. It is used both by the delta selector and to break a delta cycle
// found while ordering entries for encoding.
func (o *ObjectToPack) SetDelta(base *ObjectToPack, delta plumbing.EncodedObject) {
	o.Object = delta
	o.Base = base
	o.Depth = base.Depth + 1
}

// BackToOriginal discards the delta selection, restoring Object to Original.
func (o *ObjectToPack) BackToOriginal() {
	if !o.IsDelta() {
		return
	}

	o.Base = nil
	o.Depth = 0
	if o.Original != nil {
		o.Object = o.Original
	}
}
