package filedeck

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/filedeck/pkg/client"
	"github.com/marmos91/filedeck/pkg/pathindex"
	"github.com/marmos91/filedeck/pkg/registry"
	"github.com/marmos91/filedeck/pkg/workspace"
)

const testRoot = "/srv/files"

type harness struct {
	adapter *Adapter
	ws      *workspace.Workspace
	users   *registry.Registry
	store   *registry.MemoryStore
	index   *pathindex.Indexer
}

func newHarness(t *testing.T, cfg Config, users ...registry.User) *harness {
	t.Helper()
	ctx := context.Background()

	ws := workspace.NewMemory()
	store := registry.NewMemoryStore(users...)
	reg, err := registry.Open(ctx, store)
	require.NoError(t, err)

	ix := pathindex.New(ws, pathindex.NewFileStore(filepath.Join(t.TempDir(), "paths.txt")), pathindex.ScopeGlobal)
	t.Cleanup(func() { _ = ix.Close() })

	a, err := New(cfg, Deps{
		UploadRoot: testRoot,
		Workspace:  ws,
		Registry:   reg,
		Indexer:    ix,
	})
	require.NoError(t, err)

	return &harness{adapter: a, ws: ws, users: reg, store: store, index: ix}
}

// session is one client connected to the adapter through an in-memory pipe.
type session struct {
	*client.Client
	conn *Connection
	raw  net.Conn
	done chan struct{}
}

func (h *harness) connect(t *testing.T) *session {
	t.Helper()
	serverSide, clientSide := net.Pipe()

	conn := NewConnection(h.adapter, serverSide)
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.Serve(context.Background())
	}()

	s := &session{Client: client.New(clientSide), conn: conn, raw: clientSide, done: done}
	t.Cleanup(func() {
		_ = clientSide.Close()
		<-done
	})
	return s
}

// waitClosed fails the test unless the server side ends within a second.
func (s *session) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("session did not close")
	}
}

func (h *harness) login(t *testing.T, username, password string) *session {
	t.Helper()
	if !h.users.Exists(username) {
		require.NoError(t, h.users.Add(context.Background(), registry.User{Username: username, Password: password}))
	}
	s := h.connect(t)
	_, err := s.Login(username, password)
	require.NoError(t, err)
	return s
}

func home(username string) string {
	return filepath.Join(testRoot, username)
}
