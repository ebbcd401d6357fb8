package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tag constraints, then the cross-field rules each
// section enforces itself.
func Validate(cfg *Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		return err
	}

	if err := cfg.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := cfg.Registry.Validate(); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	if cfg.Admin.IsEnabled() && cfg.Admin.Port == cfg.Server.Port {
		return fmt.Errorf("admin port %d conflicts with server port", cfg.Admin.Port)
	}
	return nil
}
