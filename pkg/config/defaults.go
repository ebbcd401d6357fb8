package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/filedeck/pkg/registry/store"
)

// DefaultUploadRoot is where home directories live when no upload root is
// configured.
var DefaultUploadRoot = filepath.Join("res", "server_files")

// ApplyDefaults replaces zero values with defaults. Explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Storage.UploadRoot == "" {
		cfg.Storage.UploadRoot = DefaultUploadRoot
	}

	cfg.Server.ApplyDefaults()
	cfg.Registry.ApplyDefaults()
	cfg.Index.ApplyDefaults()
	cfg.Admin.ApplyDefaults()
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// GetDefaultConfig returns a Config with every default applied. Used by
// init to write a sample file.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Telemetry: TelemetryConfig{Insecure: true},
		Registry:  store.Config{Type: store.TypeFile},
	}
	ApplyDefaults(cfg)
	return cfg
}
