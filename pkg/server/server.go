// Package server assembles a running FileDeck instance from configuration:
// the registry backend, the path indexer, the session adapter and the admin
// HTTP server, and owns their shutdown order.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/filedeck/internal/logger"
	"github.com/marmos91/filedeck/pkg/adapter/filedeck"
	"github.com/marmos91/filedeck/pkg/api"
	"github.com/marmos91/filedeck/pkg/config"
	"github.com/marmos91/filedeck/pkg/metrics"
	"github.com/marmos91/filedeck/pkg/metrics/prometheus"
	"github.com/marmos91/filedeck/pkg/pathindex"
	"github.com/marmos91/filedeck/pkg/registry"
	"github.com/marmos91/filedeck/pkg/registry/store"
	"github.com/marmos91/filedeck/pkg/workspace"
)

// apiStopTimeout bounds the admin server shutdown.
const apiStopTimeout = 5 * time.Second

// Server is a fully wired FileDeck instance.
type Server struct {
	cfg *config.Config

	backend  store.Backend
	users    *registry.Registry
	indexer  *pathindex.Indexer
	adapter  *filedeck.Adapter
	apiSrv   *api.Server
	closers  []func() error
	serveOne sync.Once
}

// New opens every collaborator described by cfg. ws is the filesystem
// sessions operate on; nil selects the local disk. On error everything
// opened so far is closed again.
func New(ctx context.Context, cfg *config.Config, ws *workspace.Workspace) (_ *Server, err error) {
	if ws == nil {
		ws = workspace.NewLocal()
	}

	s := &Server{cfg: cfg}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	var sessionMetrics metrics.SessionMetrics
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := metrics.InitRegistry()
		sessionMetrics = prometheus.NewSessionMetrics()
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		logger.Info("Metrics enabled", "path", "/metrics")
	} else {
		logger.Info("Metrics collection disabled")
	}

	s.backend, err = store.New(&cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry store: %w", err)
	}
	s.closers = append(s.closers, s.backend.Close)

	s.users, err = registry.Open(ctx, s.backend)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	logger.Info("Registry loaded", "backend", cfg.Registry.Type, "users", s.users.Len())

	indexStore, err := pathindex.OpenStore(&cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("failed to open path index: %w", err)
	}
	s.indexer = pathindex.New(ws, indexStore, cfg.Index.Scope)
	s.closers = append(s.closers, s.indexer.Close)
	logger.Info("Path index configured", "type", cfg.Index.Type, "path", cfg.Index.Path, "scope", cfg.Index.Scope)

	s.adapter, err = filedeck.New(cfg.Server, filedeck.Deps{
		UploadRoot:      cfg.Storage.UploadRoot,
		Workspace:       ws,
		Registry:        s.users,
		Indexer:         s.indexer,
		Metrics:         sessionMetrics,
		ShutdownTimeout: cfg.ShutdownTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session adapter: %w", err)
	}

	if cfg.Admin.IsEnabled() {
		s.apiSrv = api.NewServer(cfg.Admin, api.Deps{
			Store:    s.backend,
			Sessions: s.adapter.Sessions(),
			Users:    s.users,
			Metrics:  metricsHandler,
		})
		logger.Info("Admin server enabled", "port", cfg.Admin.Port)
	} else {
		logger.Info("Admin server disabled")
	}

	return s, nil
}

// Adapter returns the session adapter.
func (s *Server) Adapter() *filedeck.Adapter { return s.adapter }

// Registry returns the user registry.
func (s *Server) Registry() *registry.Registry { return s.users }

// APIServer returns the admin server, or nil when it is disabled.
func (s *Server) APIServer() *api.Server { return s.apiSrv }

// Serve runs the adapter and admin server until ctx is cancelled or either
// fails, then drains sessions and releases every store. Only the first call
// serves; later calls return nil immediately.
func (s *Server) Serve(ctx context.Context) error {
	var err error
	s.serveOne.Do(func() {
		err = s.serve(ctx)
	})
	return err
}

func (s *Server) serve(ctx context.Context) error {
	logger.Info("Starting FileDeck")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	adapterDone := make(chan error, 1)
	go func() {
		adapterDone <- s.adapter.Serve(runCtx)
	}()

	apiErr := make(chan error, 1)
	if s.apiSrv != nil {
		go func() {
			if err := s.apiSrv.Start(runCtx); err != nil {
				logger.Error("API server error", logger.KeyError, err)
				apiErr <- err
			}
		}()
	}

	var serveErr error
	adapterReturned := false
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received", "reason", ctx.Err())

	case err := <-adapterDone:
		adapterReturned = true
		if err != nil {
			logger.Error("Session adapter failed - initiating shutdown", logger.KeyError, err)
			serveErr = fmt.Errorf("session adapter error: %w", err)
		}

	case err := <-apiErr:
		logger.Error("API server failed - initiating shutdown", logger.KeyError, err)
		serveErr = fmt.Errorf("API server error: %w", err)
	}

	cancel()
	if !adapterReturned {
		if err := <-adapterDone; err != nil {
			logger.Warn("Error draining sessions", logger.KeyError, err)
		}
	}

	s.shutdown()

	logger.Info("FileDeck stopped")
	return serveErr
}

// shutdown stops the admin server then closes the index and registry
// stores. Sessions are already drained when it runs.
func (s *Server) shutdown() {
	if s.apiSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), apiStopTimeout)
		defer cancel()
		if err := s.apiSrv.Stop(ctx); err != nil {
			logger.Error("API server shutdown error", logger.KeyError, err)
		}
	}

	if err := s.close(); err != nil {
		logger.Warn("Error closing stores", logger.KeyError, err)
	}
}

// close releases stores in reverse opening order.
func (s *Server) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
