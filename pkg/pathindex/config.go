package pathindex

import (
	"fmt"
	"path/filepath"
)

// Config selects the listing backend and scope.
type Config struct {
	Type  string `mapstructure:"type" yaml:"type" validate:"required,oneof=file badger"`
	Path  string `mapstructure:"path" yaml:"path"`
	Scope Scope  `mapstructure:"scope" yaml:"scope" validate:"required,oneof=global user"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = "file"
	}
	if c.Scope == "" {
		c.Scope = ScopeGlobal
	}
	if c.Path == "" {
		switch c.Type {
		case "file":
			c.Path = filepath.Join("res", "data", "paths.txt")
		case "badger":
			c.Path = filepath.Join("res", "data", "paths.badger")
		}
	}
}

// OpenStore opens the backend described by c.
func OpenStore(c *Config) (Store, error) {
	switch c.Type {
	case "file":
		return NewFileStore(c.Path), nil
	case "badger":
		return NewBadgerStore(c.Path)
	default:
		return nil, fmt.Errorf("unsupported index type: %q", c.Type)
	}
}
