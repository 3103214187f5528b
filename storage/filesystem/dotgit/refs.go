package dotgit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sourcehold/gitkit/plumbing"
)

// SetRef writes ref to its loose file under refs/ (or HEAD).
func (d *DotGit) SetRef(r *plumbing.Reference) error {
	var content string
	switch r.Type() {
	case plumbing.SymbolicReference:
		content = fmt.Sprintf("ref: %s\n", r.Target())
	case plumbing.HashReference:
		content = fmt.Sprintln(r.Hash().String())
	default:
		return plumbing.ErrInvalidReferenceName
	}

	f, err := d.fs.Create(string(r.Name()))
	if err != nil {
		return err
	}

	if _, err := f.Write([]byte(content)); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// RemoveRef deletes the loose ref file for name, and strips any packed-refs
// entry with the same name.
func (d *DotGit) RemoveRef(name plumbing.ReferenceName) error {
	err := d.fs.Remove(string(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return d.rewritePackedRefsWithout(name)
}

// Ref returns the reference named name.
func (d *DotGit) Ref(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	refs, err := d.Refs()
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		if ref.Name() == name {
			return ref, nil
		}
	}

	return nil, plumbing.ErrReferenceNotFound
}

// Refs returns every reference found in the repository: packed, loose and
// HEAD, with loose refs taking precedence over their packed-refs entry.
func (d *DotGit) Refs() ([]*plumbing.Reference, error) {
	var refs []*plumbing.Reference
	seen := make(map[plumbing.ReferenceName]bool)

	if err := d.addRefsFromRefDir(&refs, seen); err != nil {
		return nil, err
	}

	if err := d.addRefsFromPackedRefs(&refs, seen); err != nil {
		return nil, err
	}

	if err := d.addRefFromHEAD(&refs); err != nil {
		return nil, err
	}

	return refs, nil
}

func (d *DotGit) addRefsFromRefDir(refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool) error {
	return d.walkRefsDir("refs", refs, seen)
}

func (d *DotGit) walkRefsDir(dir string, refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool) error {
	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		path := d.fs.Join(dir, e.Name())
		if e.IsDir() {
			if err := d.walkRefsDir(path, refs, seen); err != nil {
				return err
			}
			continue
		}

		ref, err := d.readReferenceFile(path)
		if err != nil {
			return err
		}

		name := plumbing.ReferenceName(strings.ReplaceAll(path, string(os.PathSeparator), "/"))
		ref = renameReference(ref, name)
		seen[name] = true
		*refs = append(*refs, ref)
	}

	return nil
}

func renameReference(r *plumbing.Reference, name plumbing.ReferenceName) *plumbing.Reference {
	switch r.Type() {
	case plumbing.SymbolicReference:
		return plumbing.NewSymbolicReference(name, r.Target())
	default:
		return plumbing.NewHashReference(name, r.Hash())
	}
}

func (d *DotGit) readReferenceFile(path string) (*plumbing.Reference, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	line := strings.TrimSpace(string(b))
	return plumbing.NewReferenceFromStrings(path, line), nil
}

func (d *DotGit) addRefFromHEAD(refs *[]*plumbing.Reference) error {
	ref, err := d.readReferenceFile("HEAD")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	*refs = append(*refs, renameReference(ref, plumbing.HEAD))
	return nil
}

// addRefsFromPackedRefs appends the references recorded in the packed-refs
// file to refs, skipping names already in seen.
func (d *DotGit) addRefsFromPackedRefs(refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool) error {
	f, err := d.fs.Open(packedRefsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if line == "" || line[0] == '#' || line[0] == '^' {
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}

		name := plumbing.ReferenceName(parts[1])
		if seen[name] {
			continue
		}

		*refs = append(*refs, plumbing.NewHashReference(name, plumbing.NewHash(parts[0])))
	}

	return s.Err()
}

// CountLooseRefs returns the number of loose reference files under refs/.
func (d *DotGit) CountLooseRefs() (int, error) {
	var refs []*plumbing.Reference
	seen := make(map[plumbing.ReferenceName]bool)
	if err := d.addRefsFromRefDir(&refs, seen); err != nil {
		return 0, err
	}

	return len(refs), nil
}

// PackRefs folds every loose hash reference under refs/ into packed-refs,
// removing those loose files once packed. Symbolic references stay loose.
func (d *DotGit) PackRefs() error {
	var loose []*plumbing.Reference
	seen := make(map[plumbing.ReferenceName]bool)
	if err := d.addRefsFromRefDir(&loose, seen); err != nil {
		return err
	}

	if len(loose) == 0 {
		return nil
	}

	var packed []*plumbing.Reference
	if err := d.addRefsFromPackedRefs(&packed, make(map[plumbing.ReferenceName]bool)); err != nil {
		return err
	}

	merged := make(map[plumbing.ReferenceName]*plumbing.Reference, len(packed)+len(loose))
	for _, r := range packed {
		merged[r.Name()] = r
	}
	for _, r := range loose {
		if r.Type() == plumbing.HashReference {
			merged[r.Name()] = r
		}
	}

	f, err := d.fs.Create(packedRefsPath)
	if err != nil {
		return err
	}

	for name, r := range merged {
		if _, err := fmt.Fprintf(f, "%s %s\n", r.Hash(), name); err != nil {
			f.Close()
			return err
		}
	}

	if err := f.Close(); err != nil {
		return err
	}

	for _, r := range loose {
		if r.Type() != plumbing.HashReference {
			continue
		}
		if err := d.fs.Remove(string(r.Name())); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

func (d *DotGit) rewritePackedRefsWithout(name plumbing.ReferenceName) error {
	var packed []*plumbing.Reference
	if err := d.addRefsFromPackedRefs(&packed, make(map[plumbing.ReferenceName]bool)); err != nil {
		return err
	}

	found := false
	kept := packed[:0]
	for _, r := range packed {
		if r.Name() == name {
			found = true
			continue
		}
		kept = append(kept, r)
	}

	if !found {
		return nil
	}

	f, err := d.fs.Create(packedRefsPath)
	if err != nil {
		return err
	}

	for _, r := range kept {
		if _, err := fmt.Fprintf(f, "%s %s\n", r.Hash(), r.Name()); err != nil {
			f.Close()
			return err
		}
	}

	return f.Close()
}
