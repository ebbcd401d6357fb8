package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/filedeck/internal/protocol/wire"
	"github.com/marmos91/filedeck/pkg/client"
	"github.com/marmos91/filedeck/pkg/config"
	"github.com/marmos91/filedeck/pkg/metrics"
	"github.com/marmos91/filedeck/pkg/pathindex"
	"github.com/marmos91/filedeck/pkg/registry/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.GetDefaultConfig()
	cfg.ShutdownTimeout = 2 * time.Second
	cfg.Storage.UploadRoot = filepath.Join(dir, "files")
	cfg.Registry = store.Config{Type: store.TypeFile, Path: filepath.Join(dir, "users.yaml")}
	cfg.Index = pathindex.Config{Type: "file", Path: filepath.Join(dir, "paths.txt"), Scope: pathindex.ScopeGlobal}
	disabled := false
	cfg.Admin.Enabled = &disabled
	return cfg
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// run starts s on an ephemeral loopback port and returns its address and a
// stop function that waits for Serve to return.
func run(t *testing.T, s *Server) (string, func() error) {
	t.Helper()
	s.Adapter().BaseAdapter.Config.BindAddress = "127.0.0.1"
	s.Adapter().BaseAdapter.Config.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	addr := s.Adapter().GetListenerAddr()
	require.NotEmpty(t, addr)

	stopped := false
	stop := func() error {
		if stopped {
			return nil
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
			return nil
		}
	}
	t.Cleanup(func() { _ = stop() })
	return addr, stop
}

func TestServeRegisterLoginUpload(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	s, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, s.APIServer())

	addr, stop := run(t, s)

	c, err := client.Dial(ctx, addr)
	require.NoError(t, err)

	status, err := c.Register("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, wire.StatusRegistered, status)

	home, err := c.Login("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Adapter().UploadRoot(), "alice"), home)

	status, err = c.Upload("report.txt", []byte("quarterly"))
	require.NoError(t, err)
	assert.Equal(t, wire.StatusUploaded, status)

	require.NoError(t, c.Exit())
	_ = c.Close()
	require.NoError(t, stop())

	// A fresh instance sees the persisted user and listing.
	again, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = again.close() })

	assert.True(t, again.Registry().Exists("alice"))
	paths, err := again.indexer.Read(ctx, "alice")
	require.NoError(t, err)
	assert.Contains(t, paths, filepath.Join(home, "report.txt"))
}

func TestServeIsOnce(t *testing.T) {
	s, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)

	_, stop := run(t, s)
	require.NoError(t, stop())

	assert.NoError(t, s.Serve(context.Background()))
}

func TestAdminServerExposesSessionsAndMetrics(t *testing.T) {
	t.Cleanup(metrics.Reset)

	cfg := testConfig(t)
	enabled := true
	cfg.Admin.Enabled = &enabled
	cfg.Admin.BindAddress = "127.0.0.1"
	cfg.Admin.Port = freePort(t)
	cfg.Metrics.Enabled = true

	ctx := context.Background()
	s, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, s.APIServer())

	addr, _ := run(t, s)
	apiAddr := s.APIServer().Addr()
	require.NotEmpty(t, apiAddr)

	c, err := client.Dial(ctx, addr)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	_, err = c.Register("bob", "pw")
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/v1/users", apiAddr))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Count     int      `json:"count"`
			Usernames []string `json:"usernames"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Data.Count)
	assert.Equal(t, []string{"bob"}, body.Data.Usernames)

	mresp, err := http.Get(fmt.Sprintf("http://%s/metrics", apiAddr))
	require.NoError(t, err)
	defer func() { _ = mresp.Body.Close() }()
	raw, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "filedeck_connections_accepted_total"))
}

func TestNewRejectsBadRegistry(t *testing.T) {
	cfg := testConfig(t)
	cfg.Registry = store.Config{Type: store.TypePostgres}

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry")
}

func TestNewClosesStoresOnFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = -1

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session adapter")
}
