// Package pathguard resolves client-supplied names against a session's
// current directory and decides whether the result stays inside an allowed
// root. It never touches the filesystem.
package pathguard

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideRoot is returned when a resolved path escapes its root.
	ErrOutsideRoot = errors.New("path escapes root")

	// ErrInvalidName is returned for names that are not a single path segment.
	ErrInvalidName = errors.New("invalid name")
)

// Resolve joins name onto base, cleans the result and reports whether it is
// root itself or lies beneath it. An absolute name replaces base. Both root
// and base are expected to be clean absolute paths.
func Resolve(root, base, name string) (string, bool) {
	var p string
	if filepath.IsAbs(name) {
		p = filepath.Clean(name)
	} else {
		p = filepath.Join(base, name)
	}
	return p, Within(root, p)
}

// Within reports whether p equals root or is a descendant of it.
func Within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidName reports whether name can be used as a single directory entry.
func ValidName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidName
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return ErrInvalidName
	}
	return nil
}

// Guard confines one session's paths to a home directory.
type Guard struct {
	root string
}

// New returns a Guard for root. A relative root is made absolute.
func New(root string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Guard{root: abs}, nil
}

// Root returns the confinement root.
func (g *Guard) Root() string {
	return g.root
}

// Resolve resolves name relative to cwd. A leading slash anchors the name at
// the root rather than at the filesystem root, so clients address paths as
// if their home directory were "/".
func (g *Guard) Resolve(cwd, name string) (string, error) {
	if name == "" {
		return "", ErrInvalidName
	}

	var p string
	var ok bool
	if strings.HasPrefix(name, "/") {
		p, ok = Resolve(g.root, g.root, "."+name)
	} else {
		p, ok = Resolve(g.root, cwd, name)
	}
	if !ok {
		return "", ErrOutsideRoot
	}
	return p, nil
}

// ResolveChild resolves a single-segment name directly under dir.
func (g *Guard) ResolveChild(dir, name string) (string, error) {
	if err := ValidName(name); err != nil {
		return "", err
	}
	p, ok := Resolve(g.root, dir, name)
	if !ok {
		return "", ErrOutsideRoot
	}
	return p, nil
}

// Parent returns the parent of dir and whether moving there stays strictly
// inside the root. Moving from the root itself is refused.
func (g *Guard) Parent(dir string) (string, bool) {
	if filepath.Clean(dir) == g.root {
		return dir, false
	}
	parent := filepath.Dir(dir)
	return parent, Within(g.root, parent)
}
