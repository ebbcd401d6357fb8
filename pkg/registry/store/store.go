// Package store provides the durable backends for the user registry.
//
// Every backend stores the full user set as one snapshot that Save replaces
// wholesale; there are no incremental updates.
package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/marmos91/filedeck/pkg/registry"
)

// Type selects a registry backend.
type Type string

const (
	// TypeFile stores users in a YAML file (default).
	TypeFile Type = "file"

	// TypeSQLite stores users in a SQLite database via GORM.
	TypeSQLite Type = "sqlite"

	// TypePostgres stores users in PostgreSQL via GORM.
	TypePostgres Type = "postgres"

	// TypeBadger stores users under one key in a BadgerDB directory.
	TypeBadger Type = "badger"

	// TypeMemory keeps users in memory only; they are lost on restart.
	TypeMemory Type = "memory"
)

// DefaultFilePath is where the file backend keeps its snapshot.
var DefaultFilePath = filepath.Join("res", "data", "users.yaml")

// Config selects and configures a registry backend.
type Config struct {
	Type Type `mapstructure:"type" yaml:"type" validate:"required,oneof=file sqlite postgres badger memory"`

	// Path is the file, SQLite database or Badger directory, depending on Type.
	Path string `mapstructure:"path" yaml:"path"`

	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = TypeFile
	}

	if c.Path == "" {
		switch c.Type {
		case TypeFile:
			c.Path = DefaultFilePath
		case TypeSQLite:
			c.Path = filepath.Join("res", "data", "users.db")
		case TypeBadger:
			c.Path = filepath.Join("res", "data", "users.badger")
		}
	}

	if c.Type == TypePostgres {
		c.Postgres.applyDefaults()
	}
}

// Validate checks backend-specific requirements.
func (c *Config) Validate() error {
	switch c.Type {
	case TypeFile, TypeSQLite, TypeBadger:
		if c.Path == "" {
			return fmt.Errorf("registry path is required for %s backend", c.Type)
		}
	case TypePostgres:
		return c.Postgres.validate()
	case TypeMemory:
	default:
		return fmt.Errorf("unsupported registry type: %q", c.Type)
	}
	return nil
}

// Backend is a registry.Store that can be probed and closed.
type Backend interface {
	registry.Store

	// Healthcheck verifies the backend can serve requests.
	Healthcheck(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// New opens the backend described by cfg.
func New(cfg *Config) (Backend, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid registry configuration: %w", err)
	}

	switch cfg.Type {
	case TypeFile:
		return NewFileStore(cfg.Path), nil
	case TypeSQLite, TypePostgres:
		return NewGORMStore(cfg)
	case TypeBadger:
		return NewBadgerStore(cfg.Path)
	case TypeMemory:
		return &memoryBackend{MemoryStore: registry.NewMemoryStore()}, nil
	default:
		return nil, fmt.Errorf("unsupported registry type: %q", cfg.Type)
	}
}

type memoryBackend struct {
	*registry.MemoryStore
}

func (m *memoryBackend) Healthcheck(context.Context) error { return nil }
func (m *memoryBackend) Close() error                      { return nil }
