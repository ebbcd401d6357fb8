// Package api serves the FileDeck admin HTTP endpoints: health probes, the
// live session table, the registered usernames and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/filedeck/internal/logger"
)

// Server is the admin HTTP server.
type Server struct {
	server       *http.Server
	config       APIConfig
	shutdownOnce sync.Once

	addrMu sync.RWMutex
	addr   string
	ready  chan struct{}
}

// NewServer creates a stopped server. Call Start to serve.
func NewServer(config APIConfig, deps Deps) *Server {
	config.ApplyDefaults()

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", config.BindAddress, config.Port),
			Handler:      NewRouter(deps),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		config: config,
		ready:  make(chan struct{}),
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
// It returns nil after a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		close(s.ready)
		return fmt.Errorf("API server failed: %w", err)
	}

	s.addrMu.Lock()
	s.addr = ln.Addr().String()
	s.addrMu.Unlock()
	close(s.ready)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "address", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// ctx is already cancelled; shut down on a fresh deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop shuts the server down. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", logger.KeyError, err)
			return
		}
		logger.Info("API server stopped gracefully")
	})
	return shutdownErr
}

// Addr blocks until Start has bound and returns the listen address, or ""
// if binding failed.
func (s *Server) Addr() string {
	<-s.ready
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	return s.addr
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.config.Port
}
