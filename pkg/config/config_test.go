package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/filedeck/internal/bytesize"
	"github.com/marmos91/filedeck/pkg/adapter/filedeck"
	"github.com/marmos91/filedeck/pkg/pathindex"
	"github.com/marmos91/filedeck/pkg/registry/store"
)

// yamlSafePath keeps Windows backslashes from being read as YAML escapes.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: "debug"
server:
  port: 2121
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != 2121 {
		t.Errorf("Expected server port 2121, got %d", cfg.Server.Port)
	}
	if cfg.Storage.UploadRoot != DefaultUploadRoot {
		t.Errorf("Expected default upload root, got %q", cfg.Storage.UploadRoot)
	}
	if cfg.Registry.Type != store.TypeFile {
		t.Errorf("Expected file registry, got %q", cfg.Registry.Type)
	}
	if cfg.Index.Scope != pathindex.ScopeGlobal {
		t.Errorf("Expected global index scope, got %q", cfg.Index.Scope)
	}
	if cfg.Admin.Port != 8080 || !cfg.Admin.IsEnabled() {
		t.Errorf("Expected enabled admin on 8080, got %+v", cfg.Admin)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filedeck.DefaultPort, cfg.Server.Port)
	assert.Zero(t, cfg.Server.ConfirmTimeout)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_HumanReadableValues(t *testing.T) {
	path := writeConfig(t, `
shutdown_timeout: 5s
server:
  max_upload_size: 64Mi
  confirm_timeout: 2m
  max_connections: 50
storage:
  upload_root: "`+yamlSafePath(t.TempDir())+`"
registry:
  type: sqlite
  path: users.db
index:
  type: badger
  scope: user
admin:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 64*bytesize.MiB, cfg.Server.MaxUploadSize)
	assert.Equal(t, 2*time.Minute, cfg.Server.ConfirmTimeout)
	assert.Equal(t, 50, cfg.Server.MaxConnections)
	assert.Equal(t, store.TypeSQLite, cfg.Registry.Type)
	assert.Equal(t, "users.db", cfg.Registry.Path)
	assert.Equal(t, "badger", cfg.Index.Type)
	assert.Equal(t, pathindex.ScopeUser, cfg.Index.Scope)
	assert.Equal(t, filepath.Join("res", "data", "paths.badger"), cfg.Index.Path)
	assert.False(t, cfg.Admin.IsEnabled())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 2121
`)
	t.Setenv("FILEDECK_SERVER_PORT", "3131")
	t.Setenv("FILEDECK_SERVER_CONFIRM_TIMEOUT", "45s")
	t.Setenv("FILEDECK_LOGGING_FORMAT", "json")
	t.Setenv("FILEDECK_INDEX_SCOPE", "user")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3131, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Server.ConfirmTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, pathindex.ScopeUser, cfg.Index.Scope)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestMustLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	_, err := MustLoad(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filedeck init --config "+missing)
}

func TestMustLoad_DefaultLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := MustLoad("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filedeck init")

	require.NoError(t, SaveConfig(GetDefaultConfig(), GetDefaultConfigPath()))
	assert.True(t, DefaultConfigExists())

	cfg, err := MustLoad("")
	require.NoError(t, err)
	assert.Equal(t, filedeck.DefaultPort, cfg.Server.Port)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	original := GetDefaultConfig()
	original.Server.Port = 4000
	original.Server.MaxUploadSize = 10 * bytesize.MiB
	original.Server.ConfirmTimeout = 30 * time.Second
	original.Registry = store.Config{Type: store.TypeBadger, Path: "/var/lib/filedeck/users"}

	require.NoError(t, SaveConfig(original, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "max_upload_size: 10Mi"), string(data))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original.Server, loaded.Server)
	assert.Equal(t, original.Registry.Type, loaded.Registry.Type)
	assert.Equal(t, original.Registry.Path, loaded.Registry.Path)
	assert.Equal(t, original.Index, loaded.Index)
}
