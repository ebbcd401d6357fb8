package api

import "time"

// APIConfig configures the admin HTTP server.
type APIConfig struct {
	// Enabled controls whether the admin server is started.
	// A pointer distinguishes "not set" (enabled) from "explicitly false".
	Enabled *bool `mapstructure:"enabled" yaml:"enabled,omitempty"`

	// BindAddress is the interface to listen on. Empty binds all.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address,omitempty"`

	// Port is the HTTP port.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=0,max=65535" yaml:"port"`

	// ReadTimeout bounds reading a whole request.
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds writing a response.
	// Default: 10s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive idle time.
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// IsEnabled returns whether the admin server should run. Defaults to true.
func (c *APIConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// ApplyDefaults fills in zero values.
func (c *APIConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
