package packfile

import "github.com/sourcehold/gitkit/plumbing"

type ScannerOption func(*Scanner)

// WithSHA256 enables the SHA256 hashing while scanning a pack file.
func WithSHA256() ScannerOption {
	return func(s *Scanner) {
		h := plumbing.NewHasher256(plumbing.AnyObject, 0)
		s.hasher256 = &h
	}
}

// WithObjectIDSize sets the size, in bytes, of the object IDs referenced
// by REFDeltaObject entries and the packfile's footer checksum.
func WithObjectIDSize(size int) ScannerOption {
	return func(s *Scanner) {
		s.objectIDSize = size
	}
}
