package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/filedeck/pkg/pathindex"
	"github.com/marmos91/filedeck/pkg/registry/store"
)

func TestApplyDefaults_Empty(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
	assert.Len(t, cfg.Telemetry.Profiling.ProfileTypes, 6)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, DefaultUploadRoot, cfg.Storage.UploadRoot)
	assert.Equal(t, store.TypeFile, cfg.Registry.Type)
	assert.Equal(t, store.DefaultFilePath, cfg.Registry.Path)
	assert.Equal(t, "file", cfg.Index.Type)
	assert.Equal(t, pathindex.ScopeGlobal, cfg.Index.Scope)
	assert.Equal(t, filepath.Join("res", "data", "paths.txt"), cfg.Index.Path)
	assert.Equal(t, 8080, cfg.Admin.Port)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{
		Logging:         LoggingConfig{Level: "warn", Format: "json", Output: "stderr"},
		ShutdownTimeout: 3 * time.Second,
		Storage:         StorageConfig{UploadRoot: "/data/files"},
		Registry:        store.Config{Type: store.TypeSQLite, Path: "/data/users.db"},
		Index:           pathindex.Config{Type: "badger", Path: "/data/index", Scope: pathindex.ScopeUser},
	}
	cfg.Server.Port = 2121

	ApplyDefaults(&cfg)

	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/data/files", cfg.Storage.UploadRoot)
	assert.Equal(t, "/data/users.db", cfg.Registry.Path)
	assert.Equal(t, "/data/index", cfg.Index.Path)
	assert.Equal(t, pathindex.ScopeUser, cfg.Index.Scope)
	assert.Equal(t, 2121, cfg.Server.Port)
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.True(t, cfg.Telemetry.Insecure)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Admin.IsEnabled())
	assert.NoError(t, Validate(cfg))
}
