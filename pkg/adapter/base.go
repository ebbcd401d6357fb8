package adapter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/filedeck/internal/logger"
)

// ConnectionHandler serves one accepted connection. Serve blocks until the
// peer leaves, the session ends or ctx is cancelled.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory creates a handler for each accepted TCP connection.
type ConnectionFactory interface {
	NewConnection(conn net.Conn) ConnectionHandler
}

// BaseConfig holds the listener settings shared by protocol adapters.
type BaseConfig struct {
	// BindAddress is the IP address to bind to.
	// Empty string or "0.0.0.0" binds to all interfaces.
	BindAddress string

	// Port is the TCP port to listen on. 0 picks an ephemeral port.
	Port int

	// MaxConnections bounds concurrent client connections. When the limit is
	// reached the accept loop waits for a slot. 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout bounds how long Stop waits for sessions to drain when
	// the caller's context carries no deadline.
	ShutdownTimeout time.Duration

	// MetricsLogInterval is the interval at which the connection count is
	// logged. 0 disables periodic logging.
	MetricsLogInterval time.Duration
}

// MetricsRecorder records connection lifecycle metrics.
// metrics.SessionMetrics satisfies it.
type MetricsRecorder interface {
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	SetActiveConnections(count int32)
}

// OnConnectionClose is invoked when a connection's goroutine completes,
// before the connection slot is released.
type OnConnectionClose func(addr string)

// BaseAdapter provides shared TCP lifecycle management for protocol adapters.
//
// Adapters embed it and delegate listener management, graceful shutdown,
// connection tracking and metrics logging. Protocol behaviour is injected
// through ConnectionFactory and the preAccept hook.
//
// All exported methods are safe for concurrent use. Shutdown is idempotent.
type BaseAdapter struct {
	Config BaseConfig

	// Metrics may be nil.
	Metrics MetricsRecorder

	protocolName string

	listener   net.Listener
	listenerMu sync.RWMutex

	// ListenerReady is closed once the listener is bound, or once binding
	// has failed. Used by tests to synchronize with server startup.
	ListenerReady chan struct{}
	readyOnce     sync.Once

	// Shutdown is closed when shutdown starts.
	Shutdown     chan struct{}
	shutdownOnce sync.Once

	// ShutdownCtx is handed to every connection and cancelled on shutdown.
	ShutdownCtx    context.Context
	CancelRequests context.CancelFunc

	// ConnCount is the number of live connections.
	ConnCount atomic.Int32

	// ActiveConnections maps remote address to net.Conn for forced closure.
	ActiveConnections sync.Map

	activeConns sync.WaitGroup

	// connSemaphore is nil when MaxConnections is 0.
	connSemaphore chan struct{}
}

// NewBaseAdapter creates a stopped BaseAdapter. Call ServeWithFactory to
// start it.
func NewBaseAdapter(config BaseConfig, protocol string) *BaseAdapter {
	var sem chan struct{}
	if config.MaxConnections > 0 {
		sem = make(chan struct{}, config.MaxConnections)
		logger.Debug(protocol+" connection limit", "max_connections", config.MaxConnections)
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())

	return &BaseAdapter{
		Config:         config,
		protocolName:   protocol,
		Shutdown:       make(chan struct{}),
		ShutdownCtx:    shutdownCtx,
		CancelRequests: cancel,
		ListenerReady:  make(chan struct{}),
		connSemaphore:  sem,
	}
}

// ServeWithFactory binds the listener and runs the accept loop until ctx is
// cancelled or Stop is called. Every accepted connection is served on its
// own goroutine by the handler factory returns.
//
// preAccept may reject a connection after accept; it is closed immediately.
// onClose runs when a connection's goroutine exits. Both may be nil.
//
// A bind failure is returned without starting the loop. Otherwise the
// result is nil when every connection drained within ShutdownTimeout.
func (b *BaseAdapter) ServeWithFactory(
	ctx context.Context,
	factory ConnectionFactory,
	preAccept func(net.Conn) bool,
	onClose OnConnectionClose,
) error {
	listenAddr := fmt.Sprintf("%s:%d", b.Config.BindAddress, b.Config.Port)
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		b.markReady()
		return fmt.Errorf("failed to create %s listener on %s: %w", b.protocolName, listenAddr, err)
	}

	b.listenerMu.Lock()
	b.listener = listener
	b.listenerMu.Unlock()
	b.markReady()

	logger.Info(b.protocolName+" server listening", "address", listener.Addr().String())

	go func() {
		select {
		case <-ctx.Done():
			logger.Info(b.protocolName+" shutdown signal received", logger.KeyError, ctx.Err())
			b.initiateShutdown()
		case <-b.Shutdown:
		}
	}()

	if b.Config.MetricsLogInterval > 0 {
		go b.logMetrics(ctx)
	}

	for {
		if !b.acquireSlot() {
			return b.gracefulShutdown()
		}

		conn, err := listener.Accept()
		if err != nil {
			b.releaseSlot()
			select {
			case <-b.Shutdown:
				return b.gracefulShutdown()
			default:
				logger.Debug("Error accepting "+b.protocolName+" connection", logger.KeyError, err)
				continue
			}
		}

		// Replies are small; do not let Nagle hold them back.
		if tcp, ok := conn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.KeyError, err)
			}
		}

		if preAccept != nil && !preAccept(conn) {
			_ = conn.Close()
			b.releaseSlot()
			continue
		}

		b.track(conn, factory.NewConnection(conn), onClose)
	}
}

func (b *BaseAdapter) acquireSlot() bool {
	if b.connSemaphore == nil {
		select {
		case <-b.Shutdown:
			return false
		default:
			return true
		}
	}
	select {
	case b.connSemaphore <- struct{}{}:
		return true
	case <-b.Shutdown:
		return false
	}
}

func (b *BaseAdapter) releaseSlot() {
	if b.connSemaphore != nil {
		<-b.connSemaphore
	}
}

// track registers conn and serves it on a new goroutine.
func (b *BaseAdapter) track(conn net.Conn, handler ConnectionHandler, onClose OnConnectionClose) {
	addr := conn.RemoteAddr().String()

	b.activeConns.Add(1)
	active := b.ConnCount.Add(1)
	b.ActiveConnections.Store(addr, conn)

	if b.Metrics != nil {
		b.Metrics.RecordConnectionAccepted()
		b.Metrics.SetActiveConnections(active)
	}
	logger.Debug(b.protocolName+" connection accepted", logger.KeyClientAddr, addr, logger.KeyActive, active)

	go func() {
		defer func() {
			if onClose != nil {
				onClose(addr)
			}
			b.ActiveConnections.Delete(addr)
			remaining := b.ConnCount.Add(-1)

			if b.Metrics != nil {
				b.Metrics.RecordConnectionClosed()
				b.Metrics.SetActiveConnections(remaining)
			}
			logger.Debug(b.protocolName+" connection closed", logger.KeyClientAddr, addr, logger.KeyActive, remaining)

			b.releaseSlot()
			b.activeConns.Done()
		}()

		handler.Serve(b.ShutdownCtx)
	}()
}

// initiateShutdown stops the accept loop, closes the listener, unblocks
// pending reads and cancels ShutdownCtx. Safe to call repeatedly.
func (b *BaseAdapter) initiateShutdown() {
	b.shutdownOnce.Do(func() {
		logger.Debug(b.protocolName + " shutdown initiated")
		close(b.Shutdown)

		b.listenerMu.Lock()
		if b.listener != nil {
			if err := b.listener.Close(); err != nil {
				logger.Debug("Error closing "+b.protocolName+" listener", logger.KeyError, err)
			}
		}
		b.listenerMu.Unlock()

		b.interruptBlockingReads()
		b.CancelRequests()
	})
}

// interruptBlockingReads sets a short read deadline on every live
// connection so sessions parked on a read notice the shutdown.
func (b *BaseAdapter) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)

	b.ActiveConnections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("Error setting shutdown deadline on connection",
					logger.KeyClientAddr, key, logger.KeyError, err)
			}
		}
		return true
	})
}

// waitDrained closes the returned channel when every connection goroutine
// has exited.
func (b *BaseAdapter) waitDrained() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		b.activeConns.Wait()
		close(done)
	}()
	return done
}

// gracefulShutdown waits up to ShutdownTimeout for connections to finish,
// then force-closes whatever is left.
func (b *BaseAdapter) gracefulShutdown() error {
	logger.Info(b.protocolName+" graceful shutdown: waiting for active connections",
		logger.KeyActive, b.ConnCount.Load(), "timeout", b.Config.ShutdownTimeout)

	timeout := b.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case <-b.waitDrained():
		logger.Info(b.protocolName + " graceful shutdown complete")
		return nil
	case <-time.After(timeout):
		remaining := b.ConnCount.Load()
		logger.Warn(b.protocolName+" shutdown timeout exceeded, forcing closure", logger.KeyActive, remaining)
		b.forceCloseConnections()
		return fmt.Errorf("%s shutdown timeout: %d connections force-closed", b.protocolName, remaining)
	}
}

func (b *BaseAdapter) forceCloseConnections() {
	closed := 0
	b.ActiveConnections.Range(func(key, value any) bool {
		conn := value.(net.Conn)
		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection", logger.KeyClientAddr, key, logger.KeyError, err)
			return true
		}
		closed++
		if b.Metrics != nil {
			b.Metrics.RecordConnectionForceClosed()
		}
		return true
	})

	if closed > 0 {
		logger.Info("Force-closed "+b.protocolName+" connections", "count", closed)
	}
}

// Stop initiates shutdown and waits for live connections to finish until
// ctx is done. When ctx expires first the remaining connections are
// force-closed and ctx.Err() is returned. Safe to call more than once and
// concurrently with ServeWithFactory.
func (b *BaseAdapter) Stop(ctx context.Context) error {
	b.initiateShutdown()

	if ctx == nil {
		return b.gracefulShutdown()
	}

	select {
	case <-b.waitDrained():
		return nil
	case <-ctx.Done():
		logger.Warn(b.protocolName+" shutdown context cancelled",
			logger.KeyActive, b.ConnCount.Load(), logger.KeyError, ctx.Err())
		b.forceCloseConnections()
		return ctx.Err()
	}
}

func (b *BaseAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(b.Config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.Shutdown:
			return
		case <-ticker.C:
			logger.Info(b.protocolName+" metrics", "active_connections", b.ConnCount.Load())
		}
	}
}

// GetActiveConnections returns the current number of active connections.
func (b *BaseAdapter) GetActiveConnections() int32 {
	return b.ConnCount.Load()
}

func (b *BaseAdapter) markReady() {
	b.readyOnce.Do(func() { close(b.ListenerReady) })
}

// GetListenerAddr returns the address the server is listening on, or "" if
// binding failed. It blocks until ServeWithFactory has tried to bind.
func (b *BaseAdapter) GetListenerAddr() string {
	<-b.ListenerReady

	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()

	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Port returns the configured TCP port.
func (b *BaseAdapter) Port() int {
	return b.Config.Port
}

// Protocol returns the human-readable protocol name.
func (b *BaseAdapter) Protocol() string {
	return b.protocolName
}
