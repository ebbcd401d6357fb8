package pathguard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithin(t *testing.T) {
	root := filepath.FromSlash("/srv/files/alice")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"root itself", "/srv/files/alice", true},
		{"child", "/srv/files/alice/docs", true},
		{"deep child", "/srv/files/alice/a/b/c", true},
		{"parent", "/srv/files", false},
		{"sibling sharing prefix", "/srv/files/alice2", false},
		{"dotdot named file", "/srv/files/alice/..hidden", true},
		{"unrelated", "/etc/passwd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Within(root, filepath.FromSlash(tt.path)))
		})
	}
}

func TestResolve(t *testing.T) {
	root := filepath.FromSlash("/srv/files/alice")
	cwd := filepath.Join(root, "docs")

	tests := []struct {
		name      string
		input     string
		want      string
		contained bool
	}{
		{"plain name", "notes", "/srv/files/alice/docs/notes", true},
		{"nested", "a/b", "/srv/files/alice/docs/a/b", true},
		{"dot", ".", "/srv/files/alice/docs", true},
		{"up to root", "..", "/srv/files/alice", true},
		{"escape", "../../bob", "/srv/files/bob", false},
		{"absolute inside", "/srv/files/alice/x", "/srv/files/alice/x", true},
		{"absolute outside", "/tmp", "/tmp", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(root, cwd, tt.input)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
			assert.Equal(t, tt.contained, ok)
		})
	}
}

func TestValidName(t *testing.T) {
	for _, name := range []string{"docs", "a.txt", "..hidden", "with space"} {
		assert.NoError(t, ValidName(name), name)
	}
	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "nul\x00"} {
		assert.ErrorIs(t, ValidName(name), ErrInvalidName, "%q", name)
	}
}

func TestGuard(t *testing.T) {
	root := t.TempDir()
	g, err := New(root)
	require.NoError(t, err)
	assert.Equal(t, root, g.Root())

	cwd := filepath.Join(root, "docs")

	t.Run("RelativeToCwd", func(t *testing.T) {
		p, err := g.Resolve(cwd, "a.txt")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cwd, "a.txt"), p)
	})

	t.Run("LeadingSlashAnchorsAtRoot", func(t *testing.T) {
		p, err := g.Resolve(cwd, "/pics/b.png")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "pics", "b.png"), p)

		p, err = g.Resolve(cwd, "/")
		require.NoError(t, err)
		assert.Equal(t, root, p)
	})

	t.Run("EscapeRejected", func(t *testing.T) {
		_, err := g.Resolve(cwd, "../../etc")
		assert.ErrorIs(t, err, ErrOutsideRoot)

		_, err = g.Resolve(cwd, "/../etc")
		assert.ErrorIs(t, err, ErrOutsideRoot)
	})

	t.Run("EmptyRejected", func(t *testing.T) {
		_, err := g.Resolve(cwd, "")
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("ResolveChild", func(t *testing.T) {
		p, err := g.ResolveChild(cwd, "new")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cwd, "new"), p)

		_, err = g.ResolveChild(cwd, "../new")
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("Parent", func(t *testing.T) {
		p, ok := g.Parent(cwd)
		assert.True(t, ok)
		assert.Equal(t, root, p)

		p, ok = g.Parent(root)
		assert.False(t, ok)
		assert.Equal(t, root, p)
	})
}
