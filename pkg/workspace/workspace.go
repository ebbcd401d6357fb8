// Package workspace performs the filesystem side of session commands on a
// go-billy filesystem. Paths are absolute and already confined by the
// caller; this package only enforces existence and type rules.
package workspace

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

var (
	ErrNotExist    = errors.New("does not exist")
	ErrExist       = errors.New("already exists")
	ErrNotDir      = errors.New("not a directory")
	ErrNotFile     = errors.New("not a regular file")
	ErrNotEmptyDir = errors.New("directory not empty")
)

// Workspace wraps the filesystem holding the upload root.
type Workspace struct {
	fs billy.Filesystem
}

// New returns a Workspace over bfs.
func New(bfs billy.Filesystem) *Workspace {
	return &Workspace{fs: bfs}
}

// NewLocal returns a Workspace over the host filesystem, addressed with
// absolute paths.
func NewLocal() *Workspace {
	return New(osfs.New("/"))
}

// NewMemory returns an empty in-memory Workspace.
func NewMemory() *Workspace {
	return New(memfs.New())
}

// FS exposes the underlying filesystem.
func (w *Workspace) FS() billy.Filesystem {
	return w.fs
}

// ============================================================================
// Queries
// ============================================================================

// Stat returns file info, mapping missing paths to ErrNotExist.
func (w *Workspace) Stat(p string) (os.FileInfo, error) {
	info, err := w.fs.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotExist)
		}
		return nil, err
	}
	return info, nil
}

// Exists reports whether p exists.
func (w *Workspace) Exists(p string) bool {
	_, err := w.fs.Stat(p)
	return err == nil
}

// IsDir reports whether p is an existing directory.
func (w *Workspace) IsDir(p string) bool {
	info, err := w.fs.Stat(p)
	return err == nil && info.IsDir()
}

// IsFile reports whether p is an existing regular file.
func (w *Workspace) IsFile(p string) bool {
	info, err := w.fs.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// ListNames returns the sorted names of dir's direct children.
func (w *Workspace) ListNames(dir string) ([]string, error) {
	infos, err := w.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

// IsEmptyDir reports whether dir has no children.
func (w *Workspace) IsEmptyDir(dir string) (bool, error) {
	infos, err := w.fs.ReadDir(dir)
	if err != nil {
		return false, err
	}
	return len(infos) == 0, nil
}

// ============================================================================
// File content
// ============================================================================

// ReadFile returns the contents of a regular file.
func (w *Workspace) ReadFile(p string) ([]byte, error) {
	if !w.IsFile(p) {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFile)
	}
	return util.ReadFile(w.fs, p)
}

// ReadLines returns the file's lines without their terminators.
func (w *Workspace) ReadLines(p string) ([]string, error) {
	data, err := w.ReadFile(p)
	if err != nil {
		return nil, err
	}

	lines := []string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// WriteFile creates or truncates p with data.
func (w *Workspace) WriteFile(p string, data []byte) error {
	return util.WriteFile(w.fs, p, data, filePerm)
}

// CreateFile creates an empty file, failing with ErrExist if p exists.
// The parent directory must already exist.
func (w *Workspace) CreateFile(p string) error {
	if w.Exists(p) {
		return fmt.Errorf("%s: %w", p, ErrExist)
	}
	if parent := filepath.Dir(p); !w.IsDir(parent) {
		return fmt.Errorf("%s: %w", parent, ErrNotExist)
	}
	f, err := w.fs.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	return f.Close()
}

// CopyFile copies the regular file src to dst, replacing dst.
func (w *Workspace) CopyFile(src, dst string) error {
	if !w.IsFile(src) {
		return fmt.Errorf("%s: %w", src, ErrNotFile)
	}

	in, err := w.fs.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := w.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// ============================================================================
// Directories and renames
// ============================================================================

// Mkdir creates a single directory. The parent must exist and p must not.
func (w *Workspace) Mkdir(p string) error {
	if w.Exists(p) {
		return fmt.Errorf("%s: %w", p, ErrExist)
	}
	if parent := filepath.Dir(p); !w.IsDir(parent) {
		return fmt.Errorf("%s: %w", parent, ErrNotDir)
	}
	return w.fs.MkdirAll(p, dirPerm)
}

// MkdirAll creates p and any missing parents.
func (w *Workspace) MkdirAll(p string) error {
	return w.fs.MkdirAll(p, dirPerm)
}

// Rename moves from to to. An existing file at to is replaced.
func (w *Workspace) Rename(from, to string) error {
	return w.fs.Rename(from, to)
}

// Remove deletes a file or an empty directory.
func (w *Workspace) Remove(p string) error {
	if w.IsDir(p) {
		empty, err := w.IsEmptyDir(p)
		if err != nil {
			return err
		}
		if !empty {
			return fmt.Errorf("%s: %w", p, ErrNotEmptyDir)
		}
	}
	return w.fs.Remove(p)
}

// RemoveTree deletes root and everything under it. The traversal keeps an
// explicit stack so depth is bounded by heap, not goroutine stack, and
// every child is removed before its parent.
func (w *Workspace) RemoveTree(root string) error {
	type frame struct {
		path     string
		expanded bool
	}

	stack := []frame{{path: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		info, err := w.fs.Lstat(top.path)
		if err != nil {
			return err
		}

		if info.IsDir() && !top.expanded {
			stack = append(stack, frame{path: top.path, expanded: true})
			infos, err := w.fs.ReadDir(top.path)
			if err != nil {
				return err
			}
			for _, child := range infos {
				stack = append(stack, frame{path: filepath.Join(top.path, child.Name())})
			}
			continue
		}

		if err := w.fs.Remove(top.path); err != nil {
			return err
		}
	}
	return nil
}

// Walk visits root and every path under it in lexical order, parents
// before children. fn returning fs.SkipDir skips a directory's contents.
func (w *Workspace) Walk(root string, fn func(p string, info os.FileInfo) error) error {
	info, err := w.fs.Lstat(root)
	if err != nil {
		return err
	}
	err = w.walk(root, info, fn)
	if errors.Is(err, fs.SkipDir) || errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func (w *Workspace) walk(p string, info os.FileInfo, fn func(string, os.FileInfo) error) error {
	if err := fn(p, info); err != nil {
		if errors.Is(err, fs.SkipDir) && info.IsDir() {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return nil
	}

	children, err := w.fs.ReadDir(p)
	if err != nil {
		return err
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })

	for _, child := range children {
		if err := w.walk(filepath.Join(p, child.Name()), child, fn); err != nil {
			return err
		}
	}
	return nil
}
