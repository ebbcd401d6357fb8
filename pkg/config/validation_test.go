package config

import (
	"strings"
	"testing"

	"github.com/marmos91/filedeck/pkg/registry/store"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidServerPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_InvalidSampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for sample rate above 1")
	}
}

func TestValidate_UnknownRegistryType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Registry.Type = "mongo"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unknown registry type")
	}
}

func TestValidate_PostgresRequiresHost(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Registry = store.Config{Type: store.TypePostgres}
	cfg.Registry.ApplyDefaults()

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for postgres without host")
	}
	if !strings.Contains(err.Error(), "registry") {
		t.Errorf("Expected registry error, got: %v", err)
	}
}

func TestValidate_UnknownIndexScope(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Index.Scope = "team"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unknown index scope")
	}
}

func TestValidate_NegativeConfirmTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Server.ConfirmTimeout = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative confirm timeout")
	}
}

func TestValidate_PortConflict(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Admin.Port = cfg.Server.Port

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for admin port equal to server port")
	}

	disabled := false
	cfg.Admin.Enabled = &disabled
	if err := Validate(cfg); err != nil {
		t.Errorf("Disabled admin server must not conflict, got: %v", err)
	}
}

func TestValidate_ZeroShutdownTimeout(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.ShutdownTimeout = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for zero shutdown timeout")
	}
}
