// Package dotgit reads and writes a git repository's on-disk layout: the
// loose object store under objects/, pack/idx pairs under objects/pack/,
// and the alternates mechanism for shared object stores.
// https://github.com/git/git/blob/master/Documentation/gitrepository-layout.txt
package dotgit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"

	"github.com/sourcehold/gitkit/plumbing"
	formatcfg "github.com/sourcehold/gitkit/plumbing/format/config"
	"github.com/sourcehold/gitkit/plumbing/storer"
)

const (
	suffix         = ".git"
	packedRefsPath = "packed-refs"
	configPath     = "config"
	alternatesPath = "info/alternates"

	objectsPath = "objects"
	packPath    = "pack"

	packExt = ".pack"
	idxExt  = ".idx"
)

var (
	// ErrIdxNotFound is returned when the idx file of a packfile cannot be found.
	ErrIdxNotFound = errors.New("idx file not found")
	// ErrPackfileNotFound is returned when a packfile cannot be found.
	ErrPackfileNotFound = errors.New("packfile not found")
	// ErrConfigNotFound is returned when the config file is not found.
	ErrConfigNotFound = errors.New("config file not found")
)

// Options holds the configuration used to build a DotGit.
type Options struct {
	// ExclusiveAccess means that the filesystem is not modified externally
	// while the repo is open, allowing the directory listing to be cached.
	ExclusiveAccess bool
	// KeepDescriptors makes loose object/pack file descriptors remain open
	// until Close is called explicitly.
	KeepDescriptors bool
	// AlternatesFS is the billy filesystem used to resolve alternates. When
	// unset, alternates are resolved relative to the repository's own
	// filesystem.
	AlternatesFS billy.Filesystem
	// ObjectFormat selects the hash function used for new objects.
	ObjectFormat formatcfg.ObjectFormat
}

// DotGit represents a local git repository directory on disk (a ".git"
// directory, or the working tree root of a bare repository). Zero values of
// this type are not safe to use, use New or NewWithOptions instead.
type DotGit struct {
	fs      billy.Filesystem
	options Options

	objectList []plumbing.Hash
	packList   []plumbing.Hash
}

// New returns a DotGit value ready to be used, backed by fs.
func New(fs billy.Filesystem) *DotGit {
	return NewWithOptions(fs, Options{})
}

// NewWithOptions returns a DotGit backed by fs, customized by o.
func NewWithOptions(fs billy.Filesystem, o Options) *DotGit {
	if o.ObjectFormat == "" {
		o.ObjectFormat = formatcfg.DefaultObjectFormat
	}

	return &DotGit{fs: fs, options: o}
}

// Fs returns the underlying filesystem.
func (d *DotGit) Fs() billy.Filesystem {
	return d.fs
}

// Initialize creates the directory layout of an empty repository.
func (d *DotGit) Initialize() error {
	mkdirs := []string{
		objectsPath,
		d.fs.Join(objectsPath, packPath),
		"refs/heads",
		"refs/tags",
	}

	for _, dir := range mkdirs {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return nil
}

// Close drops the cached object and pack directory listings.
func (d *DotGit) Close() error {
	d.objectList = nil
	d.packList = nil
	return nil
}

// ConfigWriter returns a writer for the config file.
func (d *DotGit) ConfigWriter() (billy.File, error) {
	return d.fs.Create(configPath)
}

// Config returns a reader for the config file.
func (d *DotGit) Config() (billy.File, error) {
	f, err := d.fs.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return f, nil
}

// AddAlternate records remote as an additional object store shared by this
// repository, appending it to the info/alternates file.
func (d *DotGit) AddAlternate(remote string) error {
	f, err := d.fs.OpenFile(alternatesPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintln(f, remote)
	return err
}

// Alternates returns a DotGit for every path listed in info/alternates.
func (d *DotGit) Alternates() ([]*DotGit, error) {
	altfs := d.options.AlternatesFS
	if altfs == nil {
		altfs = d.fs
	}

	f, err := d.fs.Open(alternatesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var alternates []*DotGit
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		chroot, err := altfs.Chroot(line)
		if err != nil {
			continue
		}

		alternates = append(alternates, NewWithOptions(chroot, d.options))
	}

	return alternates, scanner.Err()
}

// Object returns a reader for the loose object with hash h.
func (d *DotGit) Object(h plumbing.Hash) (billy.File, error) {
	return d.fs.Open(objectPath(h))
}

// ObjectStat returns the FileInfo of the loose object with hash h.
func (d *DotGit) ObjectStat(h plumbing.Hash) (os.FileInfo, error) {
	return d.fs.Stat(objectPath(h))
}

// ObjectDelete removes the loose object with hash h.
func (d *DotGit) ObjectDelete(h plumbing.Hash) error {
	return d.fs.Remove(objectPath(h))
}

func objectPath(h plumbing.Hash) string {
	s := h.String()
	return fmt.Sprintf("%s/%s/%s", objectsPath, s[0:2], s[2:])
}

// Objects returns the hashes of every loose object under objects/.
func (d *DotGit) Objects() ([]plumbing.Hash, error) {
	var hashes []plumbing.Hash
	if err := d.ForEachObjectHash(func(h plumbing.Hash) error {
		hashes = append(hashes, h)
		return nil
	}); err != nil {
		return nil, err
	}

	return hashes, nil
}

// ObjectsWithPrefix returns the hashes of loose objects whose hex encoding
// starts with prefix.
func (d *DotGit) ObjectsWithPrefix(prefix []byte) ([]plumbing.Hash, error) {
	hex := fmt.Sprintf("%x", prefix)

	var hashes []plumbing.Hash
	err := d.ForEachObjectHash(func(h plumbing.Hash) error {
		if strings.HasPrefix(h.String(), hex) {
			hashes = append(hashes, h)
		}
		return nil
	})

	return hashes, err
}

// ForEachObjectHash calls fun for every loose object hash found under
// objects/. Returning storer.ErrStop from fun halts the walk.
func (d *DotGit) ForEachObjectHash(fun func(plumbing.Hash) error) error {
	files, err := d.fs.ReadDir(objectsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, dir := range files {
		if !dir.IsDir() || len(dir.Name()) != 2 || !isHex(dir.Name()) {
			continue
		}

		base := dir.Name()
		entries, err := d.fs.ReadDir(d.fs.Join(objectsPath, base))
		if err != nil {
			return err
		}

		for _, e := range entries {
			if e.IsDir() {
				continue
			}

			h := plumbing.NewHash(base + e.Name())
			if err := fun(h); err != nil {
				if errors.Is(err, storer.ErrStop) {
					return err
				}
				return err
			}
		}
	}

	return nil
}

// ObjectPacks returns the checksum of every packfile under objects/pack/.
func (d *DotGit) ObjectPacks() ([]plumbing.Hash, error) {
	files, err := d.fs.ReadDir(d.fs.Join(objectsPath, packPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var packs []plumbing.Hash
	for _, f := range files {
		n := f.Name()
		if !strings.HasSuffix(n, packExt) {
			continue
		}

		packs = append(packs, plumbing.NewHash(n[5:len(n)-len(packExt)]))
	}

	return packs, nil
}

// ObjectPack returns a reader for the packfile with the given checksum.
func (d *DotGit) ObjectPack(hash plumbing.Hash) (billy.File, error) {
	f, err := d.fs.Open(d.packFilePath(hash, packExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPackfileNotFound
		}
		return nil, err
	}

	return f, nil
}

// ObjectPackIdx returns a reader for the idx file of the given packfile.
func (d *DotGit) ObjectPackIdx(hash plumbing.Hash) (billy.File, error) {
	f, err := d.fs.Open(d.packFilePath(hash, idxExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIdxNotFound
		}
		return nil, err
	}

	return f, nil
}

// DeleteOldObjectPackAndIndex removes the pack/idx pair for hash if its
// modification time is before t.
func (d *DotGit) DeleteOldObjectPackAndIndex(hash plumbing.Hash, t time.Time) error {
	packPath := d.packFilePath(hash, packExt)
	fi, err := d.fs.Stat(packPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if !t.IsZero() && fi.ModTime().After(t) {
		return nil
	}

	if err := d.fs.Remove(packPath); err != nil {
		return err
	}

	return d.fs.Remove(d.packFilePath(hash, idxExt))
}

func (d *DotGit) packFilePath(hash plumbing.Hash, ext string) string {
	return d.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s%s", hash.String(), ext))
}

func isHex(s string) bool {
	for _, b := range []byte(s) {
		if isNum(b) || isHexAlpha(b) {
			continue
		}

		return false
	}

	return true
}

func isNum(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexAlpha(b byte) bool {
	return b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

var _ io.Closer = (*DotGit)(nil)
