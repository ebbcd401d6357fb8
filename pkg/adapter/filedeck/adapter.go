// Package filedeck implements the FileDeck session protocol on top of the
// shared TCP lifecycle in pkg/adapter.
//
// Each accepted connection runs one Session: an unauthenticated phase that
// accepts login, register and exit, then a command loop confined to the
// user's home directory under the upload root.
package filedeck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/marmos91/filedeck/internal/bytesize"
	"github.com/marmos91/filedeck/internal/logger"
	"github.com/marmos91/filedeck/pkg/adapter"
	"github.com/marmos91/filedeck/pkg/metrics"
	"github.com/marmos91/filedeck/pkg/pathindex"
	"github.com/marmos91/filedeck/pkg/registry"
	"github.com/marmos91/filedeck/pkg/workspace"
)

// DefaultPort is the port the server listens on when none is configured.
const DefaultPort = 12345

// Config holds the session server settings.
type Config struct {
	// BindAddress is the IP address to bind to. Empty binds all interfaces.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// Port is the TCP port for client connections.
	// Default: 12345
	Port int `mapstructure:"port" validate:"min=0,max=65535" yaml:"port"`

	// MaxConnections caps concurrent sessions. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0" yaml:"max_connections"`

	// MaxUploadSize bounds a single uploaded payload. A larger payload is
	// treated as a protocol fault and ends the session. 0 means unlimited.
	MaxUploadSize bytesize.ByteSize `mapstructure:"max_upload_size" yaml:"max_upload_size"`

	// ConfirmTimeout bounds the wait for the answer to a recursive delete
	// prompt. When it expires the session is closed. 0 waits forever.
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout" validate:"min=0" yaml:"confirm_timeout"`

	// MetricsLogInterval periodically logs the connection count. 0 disables it.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" validate:"min=0" yaml:"metrics_log_interval,omitempty"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
}

// Validate checks the settings that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid max_connections %d: must be >= 0", c.MaxConnections)
	}
	if c.ConfirmTimeout < 0 {
		return fmt.Errorf("invalid confirm_timeout %v: must be >= 0", c.ConfirmTimeout)
	}
	return nil
}

// Deps are the shared collaborators every session talks to.
type Deps struct {
	// UploadRoot is the directory holding one home directory per user.
	UploadRoot string

	Workspace *workspace.Workspace
	Registry  *registry.Registry
	Indexer   *pathindex.Indexer

	// Metrics may be nil.
	Metrics metrics.SessionMetrics

	// ShutdownTimeout bounds the drain in Stop when the caller gives no
	// deadline.
	ShutdownTimeout time.Duration
}

// Adapter serves the FileDeck protocol.
//
// It embeds BaseAdapter for listening, connection tracking and shutdown;
// the session state machine lives in Connection.
type Adapter struct {
	*adapter.BaseAdapter

	config     Config
	uploadRoot string
	ws         *workspace.Workspace
	users      *registry.Registry
	indexer    *pathindex.Indexer
	metrics    metrics.SessionMetrics
	sessions   *Tracker
}

var _ adapter.Adapter = (*Adapter)(nil)

// New builds an Adapter. The configuration is defaulted and validated and
// the upload root is created if missing.
func New(cfg Config, deps Deps) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	switch {
	case deps.Workspace == nil:
		return nil, errors.New("workspace is required")
	case deps.Registry == nil:
		return nil, errors.New("registry is required")
	case deps.Indexer == nil:
		return nil, errors.New("indexer is required")
	case deps.UploadRoot == "":
		return nil, errors.New("upload root is required")
	}

	root, err := filepath.Abs(deps.UploadRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}
	if err := deps.Workspace.MkdirAll(root); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}

	base := adapter.NewBaseAdapter(adapter.BaseConfig{
		BindAddress:        cfg.BindAddress,
		Port:               cfg.Port,
		MaxConnections:     cfg.MaxConnections,
		ShutdownTimeout:    deps.ShutdownTimeout,
		MetricsLogInterval: cfg.MetricsLogInterval,
	}, "FileDeck")
	if deps.Metrics != nil {
		base.Metrics = deps.Metrics
	}

	return &Adapter{
		BaseAdapter: base,
		config:      cfg,
		uploadRoot:  root,
		ws:          deps.Workspace,
		users:       deps.Registry,
		indexer:     deps.Indexer,
		metrics:     deps.Metrics,
		sessions:    NewTracker(deps.Metrics),
	}, nil
}

// Serve accepts connections until ctx is cancelled.
func (a *Adapter) Serve(ctx context.Context) error {
	logger.Info("Starting FileDeck server",
		"port", a.config.Port, "upload_root", a.uploadRoot, "max_connections", a.config.MaxConnections)
	return a.ServeWithFactory(ctx, a, nil, nil)
}

// NewConnection implements adapter.ConnectionFactory.
func (a *Adapter) NewConnection(conn net.Conn) adapter.ConnectionHandler {
	return NewConnection(a, conn)
}

// Sessions exposes the live session table.
func (a *Adapter) Sessions() *Tracker {
	return a.sessions
}

// UploadRoot returns the absolute upload root.
func (a *Adapter) UploadRoot() string {
	return a.uploadRoot
}
