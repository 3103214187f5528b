// Package filemode defines the set of valid file modes for tree entries,
// matching the octal values used in the packfile and tree object
// encodings.
package filemode

import (
	"fmt"
	"os"
	"strconv"
)

// A FileMode represents the unix file mode of a tree entry.
type FileMode uint32

const (
	Empty      FileMode = 0
	Dir        FileMode = 0o40000
	Regular    FileMode = 0o100644
	Deprecated FileMode = 0o100664
	Executable FileMode = 0o100755
	Symlink    FileMode = 0o120000
	Submodule  FileMode = 0o160000
)

// New takes the octal string representation of a FileMode and returns
// the FileMode and a nil error, or an error if the string does not
// represent a valid octal number.
func New(s string) (FileMode, error) {
	var m FileMode
	err := m.UnmarshalText([]byte(s))
	return m, err
}

// NewFromOSFileMode converts an os.FileMode to the closest matching
// FileMode. It returns an error when m has no git equivalent (device
// files, sockets, named pipes, temporary files).
func NewFromOSFileMode(m os.FileMode) (FileMode, error) {
	if m.IsRegular() {
		if m&os.ModeTemporary != 0 {
			return Empty, fmt.Errorf("no equivalent file mode: %s", m)
		}
		if isSetExecutable(m) {
			return Executable, nil
		}
		return Regular, nil
	}

	if m.IsDir() {
		return Dir, nil
	}

	if m&os.ModeSymlink != 0 {
		return Symlink, nil
	}

	if m&os.ModeNamedPipe != 0 {
		return Empty, fmt.Errorf("no equivalent file mode: %s", m)
	}

	if m&os.ModeSocket != 0 {
		return Empty, fmt.Errorf("no equivalent file mode: %s", m)
	}

	if m&os.ModeDevice != 0 {
		return Empty, fmt.Errorf("no equivalent file mode: %s", m)
	}

	if m&os.ModeCharDevice != 0 {
		return Empty, fmt.Errorf("no equivalent file mode: %s", m)
	}

	if m&os.ModeTemporary != 0 {
		return Empty, fmt.Errorf("no equivalent file mode: %s", m)
	}

	return Regular, nil
}

func isSetExecutable(m os.FileMode) bool {
	return m&0o111 != 0
}

// Bytes returns the little-endian 4-byte encoding of the mode, as used
// in the packfile tree-entry representation.
func (m FileMode) Bytes() []byte {
	return []byte{
		byte(0xFF & m),
		byte(0xFF & (m >> 8)),
		byte(0xFF & (m >> 16)),
		byte(0xFF & (m >> 24)),
	}
}

// IsMalformed returns true for a mode that does not correspond to any
// of the known git file modes.
func (m FileMode) IsMalformed() bool {
	switch m {
	case Dir, Regular, Deprecated, Executable, Symlink, Submodule:
		return false
	default:
		return true
	}
}

// String returns the mode as a 7-digit, zero-padded octal number, the
// same textual form used in tree object encodings.
func (m FileMode) String() string {
	return fmt.Sprintf("%07o", uint32(m))
}

// IsRegular returns true for modes that git treats as plain file
// content without an executable bit: Regular and Deprecated.
func (m FileMode) IsRegular() bool {
	return m == Regular || m == Deprecated
}

// IsFile returns true for modes whose entry addresses file-like blob
// content: Regular, Deprecated, Executable and Symlink.
func (m FileMode) IsFile() bool {
	switch m {
	case Regular, Deprecated, Executable, Symlink:
		return true
	default:
		return false
	}
}

// ToOSFileMode returns the closest os.FileMode match, or an error if m
// is malformed.
func (m FileMode) ToOSFileMode() (os.FileMode, error) {
	switch m {
	case Dir, Submodule:
		return os.ModePerm | os.ModeDir, nil
	case Regular, Deprecated:
		return os.FileMode(0o644), nil
	case Executable:
		return os.FileMode(0o755), nil
	case Symlink:
		return os.ModePerm | os.ModeSymlink, nil
	default:
		return os.FileMode(0), fmt.Errorf("malformed mode (%d/%s)", uint32(m), m)
	}
}

// UnmarshalText decodes the octal string representation of a FileMode.
func (m *FileMode) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 8, 32)
	if err != nil {
		return err
	}

	*m = FileMode(v)
	return nil
}
