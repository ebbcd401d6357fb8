package commands

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/filedeck/pkg/adapter/filedeck"
	"github.com/marmos91/filedeck/pkg/api"
	"github.com/marmos91/filedeck/pkg/registry"
)

type fakeSessions []filedeck.SessionInfo

func (f fakeSessions) List() []filedeck.SessionInfo { return f }

func (f fakeSessions) Get(id string) (filedeck.SessionInfo, bool) {
	for _, s := range f {
		if s.ID == id {
			return s, true
		}
	}
	return filedeck.SessionInfo{}, false
}

type fakeUsers []string

func (f fakeUsers) Usernames() []string { return f }

func (f fakeUsers) Add(context.Context, registry.User) error { return registry.ErrUserExists }

type fakeStore struct{}

func (fakeStore) Healthcheck(context.Context) error { return nil }

func adminServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(api.NewRouter(api.Deps{
		Store: fakeStore{},
		Sessions: fakeSessions{
			{ID: "abc", RemoteAddr: "127.0.0.1:40000", Username: "alice", CurrentDir: "/srv/alice", Authenticated: true, ConnectedAt: time.Now().Add(-90 * time.Second)},
			{ID: "def", RemoteAddr: "127.0.0.1:40001", ConnectedAt: time.Now()},
		},
		Users: fakeUsers{"alice", "bob"},
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		adminURL = ""
		outputFormat = "table"
	})
	return srv.URL
}

func TestSessionsList(t *testing.T) {
	url := adminServer(t)

	out, err := execute(t, "", "sessions", "list", "--admin-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "/srv/alice")
	assert.Contains(t, out, "1m ")
	assert.Contains(t, out, "def")
}

func TestSessionsShow(t *testing.T) {
	url := adminServer(t)

	out, err := execute(t, "", "sessions", "show", "abc", "--admin-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "true")

	_, err = execute(t, "", "sessions", "show", "zzz", "--admin-url", url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Session not found")
}

func TestStatus(t *testing.T) {
	url := adminServer(t)

	out, err := execute(t, "", "status", "--admin-url", url, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "ready: true")
	assert.Contains(t, out, "sessions: 2")
	assert.Contains(t, out, "authenticated: 1")
	assert.Contains(t, out, "users: 2")
}

func TestAdminClientFromConfig(t *testing.T) {
	t.Setenv("FILEDECK_ADMIN_PORT", "9191")
	cfgFile = ""
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c, err := adminClient()
	require.NoError(t, err)
	assert.NotNil(t, c)

	t.Setenv("FILEDECK_ADMIN_ENABLED", "false")
	_, err = adminClient()
	assert.Error(t, err)
}
