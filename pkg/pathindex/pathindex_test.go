package pathindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/filedeck/pkg/workspace"
)

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws := workspace.NewMemory()
	require.NoError(t, ws.MkdirAll("/srv/alice/docs"))
	require.NoError(t, ws.MkdirAll("/srv/bob"))
	require.NoError(t, ws.WriteFile("/srv/alice/a.txt", []byte("a")))
	require.NoError(t, ws.WriteFile("/srv/alice/docs/b.txt", []byte("b")))
	require.NoError(t, ws.WriteFile("/srv/bob/z.txt", []byte("z")))
	return ws
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	badger, err := NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = badger.Close() })

	return map[string]Store{
		"file":   NewFileStore(filepath.Join(t.TempDir(), "paths.txt")),
		"badger": badger,
	}
}

func TestRefreshWritesWalkOrder(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ix := New(newWorkspace(t), store, ScopeGlobal)

			n, err := ix.Refresh(ctx, "alice", "/srv/alice")
			require.NoError(t, err)
			assert.Equal(t, 4, n)

			got, err := ix.Read(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, []string{
				"/srv/alice",
				"/srv/alice/a.txt",
				"/srv/alice/docs",
				"/srv/alice/docs/b.txt",
			}, got)
		})
	}
}

func TestRefreshOverwrites(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(t)
	ix := New(ws, NewFileStore(filepath.Join(t.TempDir(), "paths.txt")), ScopeGlobal)

	_, err := ix.Refresh(ctx, "alice", "/srv/alice")
	require.NoError(t, err)

	require.NoError(t, ws.RemoveTree("/srv/alice/docs"))
	_, err = ix.Refresh(ctx, "alice", "/srv/alice")
	require.NoError(t, err)

	got, err := ix.Read(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/alice", "/srv/alice/a.txt"}, got)
}

func TestGlobalScopeIsShared(t *testing.T) {
	ctx := context.Background()
	ix := New(newWorkspace(t), NewFileStore(filepath.Join(t.TempDir(), "paths.txt")), ScopeGlobal)

	_, err := ix.Refresh(ctx, "alice", "/srv/alice")
	require.NoError(t, err)
	_, err = ix.Refresh(ctx, "bob", "/srv/bob")
	require.NoError(t, err)

	// The last writer owns the single listing, whoever reads it.
	got, err := ix.Read(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/bob", "/srv/bob/z.txt"}, got)
}

func TestUserScopeIsolates(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ix := New(newWorkspace(t), store, ScopeUser)

			_, err := ix.Refresh(ctx, "alice", "/srv/alice")
			require.NoError(t, err)
			_, err = ix.Refresh(ctx, "bob", "/srv/bob")
			require.NoError(t, err)

			alice, err := ix.Read(ctx, "alice")
			require.NoError(t, err)
			assert.Contains(t, alice, "/srv/alice/docs/b.txt")
			assert.NotContains(t, alice, "/srv/bob")

			bob, err := ix.Read(ctx, "bob")
			require.NoError(t, err)
			assert.Equal(t, []string{"/srv/bob", "/srv/bob/z.txt"}, bob)
		})
	}
}

func TestFileStoreSlotPaths(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "paths.txt"))

	require.NoError(t, s.Write(context.Background(), "alice", []string{"/x"}))
	_, err := os.Stat(filepath.Join(dir, "paths-alice.txt"))
	assert.NoError(t, err)

	missing, err := s.Read(context.Background(), GlobalSlot)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestRefreshMissingDir(t *testing.T) {
	ix := New(newWorkspace(t), NewFileStore(filepath.Join(t.TempDir(), "p.txt")), "")
	assert.Equal(t, ScopeGlobal, ix.Scope())

	_, err := ix.Refresh(context.Background(), "alice", "/srv/nobody")
	assert.Error(t, err)
}

func TestConcurrentRefreshNeverTears(t *testing.T) {
	ctx := context.Background()
	ws := workspace.NewMemory()
	for u := 0; u < 4; u++ {
		for f := 0; f < 20; f++ {
			require.NoError(t, ws.WriteFile(fmt.Sprintf("/srv/u%d/f%02d", u, f), []byte("x")))
		}
	}
	ix := New(ws, NewFileStore(filepath.Join(t.TempDir(), "paths.txt")), ScopeGlobal)

	var wg sync.WaitGroup
	for u := 0; u < 4; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, err := ix.Refresh(ctx, fmt.Sprintf("u%d", u), fmt.Sprintf("/srv/u%d", u))
				assert.NoError(t, err)
			}
		}(u)
	}
	wg.Wait()

	got, err := ix.Read(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 21, "listing must be exactly one user's subtree")
	owner := got[0]
	for _, p := range got[1:] {
		assert.Equal(t, owner, filepath.Dir(p))
	}
}
