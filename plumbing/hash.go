package plumbing

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/pjbgf/sha1cd"

	format "github.com/sourcehold/gitkit/plumbing/format/config"
)

// ObjectID is the hash that addresses a Git object. It is a fixed-width
// byte array sized for the largest supported digest (SHA-256); objects
// hashed with SHA-1 only ever populate the first 20 bytes.
//
// The zero value is the all-zero hash of the SHA-1 object format, which
// is what Git uses to denote "no object" in ref-update commands.
type ObjectID struct {
	hash   [format.SHA256Size]byte
	format format.ObjectFormat
}

// Hash is an alias kept for readability at call sites that only care
// about "the hash of an object", as opposed to its format.
type Hash = ObjectID

// ZeroHash is the zero-value SHA-1 ObjectID.
var ZeroHash ObjectID

// NewHash parses a hexadecimal string into a Hash. Invalid input yields
// the zero hash; callers that need to distinguish the two cases should
// use FromHex instead.
func NewHash(s string) Hash {
	h, _ := FromHex(s)
	return h
}

// FromHex parses a hexadecimal string and returns an ObjectID and a
// boolean confirming whether the operation was successful. The object
// format is inferred from the length of the input: 40 hex chars is
// SHA-1, 64 is SHA-256.
func FromHex(in string) (ObjectID, bool) {
	var id ObjectID

	switch len(in) {
	case format.SHA256HexSize:
		id.format = format.SHA256
	case format.SHA1HexSize:
		id.format = format.SHA1
	default:
		return id, false
	}

	out, err := hex.DecodeString(in)
	if err != nil {
		return ObjectID{}, false
	}

	copy(id.hash[:], out)
	return id, true
}

// FromBytes creates an ObjectID from the raw digest bytes. The object
// format is inferred from the length of the input.
func FromBytes(in []byte) (ObjectID, bool) {
	var id ObjectID

	switch len(in) {
	case format.SHA1Size:
		id.format = format.SHA1
	case format.SHA256Size:
		id.format = format.SHA256
	default:
		return id, false
	}

	copy(id.hash[:], in)
	return id, true
}

// ZeroFromObjectFormat returns the zero hash for the given object format.
func ZeroFromObjectFormat(f format.ObjectFormat) ObjectID {
	if f == format.SHA256 {
		return ObjectID{format: format.SHA256}
	}
	return ObjectID{format: format.SHA1}
}

// Size returns the number of bytes in the digest (20 or 32).
func (h ObjectID) Size() int {
	if h.format == format.SHA256 {
		return format.SHA256Size
	}
	return format.SHA1Size
}

// IsZero reports whether h is entirely zero bytes.
func (h ObjectID) IsZero() bool {
	var empty [format.SHA256Size]byte
	return bytes.Equal(h.hash[:h.Size()], empty[:h.Size()])
}

// Compare compares h's digest bytes against b.
func (h ObjectID) Compare(b []byte) int {
	return bytes.Compare(h.hash[:h.Size()], b)
}

// HasPrefix reports whether h's digest begins with prefix.
func (h ObjectID) HasPrefix(prefix []byte) bool {
	return bytes.HasPrefix(h.hash[:h.Size()], prefix)
}

// String returns the lowercase hexadecimal representation of h.
func (h ObjectID) String() string {
	return hex.EncodeToString(h.hash[:h.Size()])
}

// Bytes returns the raw digest bytes of h.
func (h ObjectID) Bytes() []byte {
	out := make([]byte, h.Size())
	copy(out, h.hash[:h.Size()])
	return out
}

// ResetBySize clears h's digest and sets its object format to whichever
// format produces a digest of the given size in bytes (20 or 32).
func (h *ObjectID) ResetBySize(size int) {
	*h = ObjectID{}
	if size == format.SHA256Size {
		h.format = format.SHA256
	}
}

// ReadFrom reads exactly h.Size() bytes from r into h's digest.
func (h *ObjectID) ReadFrom(r io.Reader) (int64, error) {
	n, err := io.ReadFull(r, h.hash[:h.Size()])
	return int64(n), err
}

// HashesSort sorts a slice of Hashes in increasing order.
func HashesSort(a []Hash) {
	sort.Sort(HashSlice(a))
}

// HashSlice attaches the methods of sort.Interface to []Hash, sorting in
// increasing order.
type HashSlice []Hash

func (p HashSlice) Len() int           { return len(p) }
func (p HashSlice) Less(i, j int) bool { return p[i].Compare(p[j].Bytes()) < 0 }
func (p HashSlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

// IsHash reports whether s is a syntactically valid hex hash of either
// supported size.
func IsHash(s string) bool {
	switch len(s) {
	case format.SHA1HexSize, format.SHA256HexSize:
		_, err := hex.DecodeString(s)
		return err == nil
	default:
		return false
	}
}

// Hasher wraps a hash.Hash to compute the canonical
// "<kind> <size>\0<payload>" object digest incrementally.
type Hasher struct {
	hash.Hash
	format format.ObjectFormat
}

// NewHasher returns a new Hasher for the given object format, priming it
// with the object header for a value of type t and size size.
func NewHasher(f format.ObjectFormat, t ObjectType, size int64) Hasher {
	h := Hasher{format: f}
	if f == format.SHA256 {
		h.Hash = crypto.SHA256.New()
	} else {
		h.Hash = sha1cd.New()
	}
	h.Reset(t, size)
	return h
}

// Reset clears the hasher and re-primes it with a new object header.
func (h Hasher) Reset(t ObjectType, size int64) {
	h.Hash.Reset()
	writeObjectHeader(h.Hash, t, size)
}

// Sum returns the computed object hash.
func (h Hasher) Sum() (out Hash) {
	out.format = h.format
	copy(out.hash[:], h.Hash.Sum(nil))
	return out
}

func writeObjectHeader(h hash.Hash, t ObjectType, size int64) {
	h.Write(t.Bytes())
	h.Write([]byte(" "))
	h.Write([]byte(strconv.FormatInt(size, 10)))
	h.Write([]byte{0})
}

// ObjectHasher computes object hashes for a fixed object format. Unlike
// Hasher, it owns its hash.Hash instance, is safe for concurrent use, and
// never exposes a half-initialized digest.
type ObjectHasher struct {
	hasher hash.Hash
	m      sync.Mutex
	format format.ObjectFormat
}

// Size returns the digest size produced by this hasher.
func (h *ObjectHasher) Size() int {
	return h.hasher.Size()
}

// Compute hashes d as an object of type ot, returning its ObjectID.
func (h *ObjectHasher) Compute(ot ObjectType, d []byte) (ObjectID, error) {
	h.m.Lock()
	defer h.m.Unlock()

	h.hasher.Reset()
	out := ObjectID{format: h.format}
	writeObjectHeader(h.hasher, ot, int64(len(d)))
	if _, err := h.hasher.Write(d); err != nil {
		return out, fmt.Errorf("compute object hash: %w", err)
	}

	copy(out.hash[:], h.hasher.Sum(out.hash[:0]))
	return out, nil
}

func newObjectHasher(f format.ObjectFormat) (*ObjectHasher, error) {
	var hasher hash.Hash
	switch f {
	case format.SHA1:
		hasher = sha1cd.New()
	case format.SHA256:
		hasher = crypto.SHA256.New()
	default:
		return nil, fmt.Errorf("unsupported object format: %s", f)
	}
	return &ObjectHasher{hasher: hasher, format: f}, nil
}

// FromObjectFormat returns the ObjectHasher for the given object format.
func FromObjectFormat(f format.ObjectFormat) (*ObjectHasher, error) {
	switch f {
	case format.SHA1, format.SHA256:
		return newObjectHasher(f)
	default:
		return nil, format.ErrInvalidObjectFormat
	}
}

// FromHash returns the ObjectHasher matching the digest size of h.
func FromHash(h hash.Hash) (*ObjectHasher, error) {
	switch h.Size() {
	case format.SHA1Size:
		return newObjectHasher(format.SHA1)
	case sha256.Size:
		return newObjectHasher(format.SHA256)
	default:
		return nil, fmt.Errorf("unsupported hash function: %T", h)
	}
}
