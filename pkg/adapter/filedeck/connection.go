package filedeck

import (
	"context"
	"errors"
	"net"
	"runtime/debug"
	"time"

	"github.com/marmos91/filedeck/internal/logger"
	"github.com/marmos91/filedeck/internal/protocol/wire"
	"github.com/marmos91/filedeck/internal/telemetry"
	"github.com/marmos91/filedeck/pkg/metrics"
)

// errExit ends the session at the client's request.
var errExit = errors.New("client exit")

// Connection runs the session state machine for one TCP connection.
type Connection struct {
	server  *Adapter
	conn    net.Conn
	codec   *wire.Codec
	session *Session
}

// NewConnection wraps conn in a fresh unauthenticated session.
func NewConnection(server *Adapter, conn net.Conn) *Connection {
	return &Connection{
		server:  server,
		conn:    conn,
		codec:   wire.NewCodec(conn, server.config.MaxUploadSize.Int()),
		session: newSession(conn.RemoteAddr().String()),
	}
}

// Session returns the connection's session.
func (c *Connection) Session() *Session {
	return c.session
}

// Serve reads command tokens until the client exits, the stream ends, a
// value fails to decode or ctx is cancelled. A panic in a handler is
// recovered and closes only this connection.
//
// Validation and filesystem failures are reported to the client as status
// strings and never end the session.
func (c *Connection) Serve(ctx context.Context) {
	s := c.session
	c.server.sessions.add(s)
	defer c.handleConnectionClose()

	ctx, span := telemetry.StartSessionSpan(ctx, s.ID, s.RemoteAddr)
	defer span.End()

	lc := logger.NewLogContext(s.ID, clientIP(s.RemoteAddr)).
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)

	logger.InfoCtx(ctx, "Client connected", logger.KeyClientAddr, s.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			logger.DebugCtx(ctx, "Session closed by server shutdown")
			return
		default:
		}

		token, err := c.codec.ReadString()
		if err != nil {
			c.logStreamError(ctx, "Reading command", err)
			return
		}

		if err := c.dispatch(ctx, token); err != nil {
			if errors.Is(err, errExit) {
				logger.InfoCtx(c.ctxFor(ctx), "Client exited")
				return
			}
			c.logStreamError(c.ctxFor(ctx), "Handling "+token, err)
			return
		}
	}
}

// ctxFor refreshes the logging context once a user has logged in.
func (c *Connection) ctxFor(ctx context.Context) context.Context {
	lc := logger.FromContext(ctx)
	if lc == nil || lc.Username != "" {
		return ctx
	}
	if name := c.session.Username(); name != "" {
		return logger.WithContext(ctx, lc.WithUsername(name))
	}
	return ctx
}

// dispatch runs one top-level command. It returns an error only when the
// session must end.
func (c *Connection) dispatch(ctx context.Context, token string) error {
	if token == wire.CmdExit {
		return errExit
	}

	cmd, ok := commands[token]
	if !ok || cmd.authenticated != c.session.Authenticated() {
		logger.DebugCtx(ctx, "Invalid command", logger.KeyCommand, token)
		c.recordCommand("invalid", metrics.OutcomeRejected, 0)
		return c.reply(wire.StatusInvalidCommand)
	}

	ctx = c.ctxFor(ctx)
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithCommand(token))
	ctx, span := telemetry.StartCommandSpan(ctx, token, telemetry.Path(c.session.CurrentDir()))
	defer span.End()

	start := time.Now()
	outcome, err := cmd.handle(c, ctx)
	if err != nil {
		telemetry.RecordError(ctx, err)
		outcome = metrics.OutcomeError
	}
	c.recordCommand(token, outcome, time.Since(start))

	logger.DebugCtx(ctx, "Command handled",
		"outcome", outcome, logger.KeyDir, c.session.CurrentDir(), logger.KeyDurationMs, logger.Duration(start))
	return err
}

type command struct {
	handle        func(c *Connection, ctx context.Context) (string, error)
	authenticated bool
}

// commands maps top-level tokens to handlers. An entry is only valid in the
// matching authentication state; exit is handled before lookup.
var commands = map[string]command{
	wire.CmdLogin:        {handle: (*Connection).handleLogin},
	wire.CmdRegister:     {handle: (*Connection).handleRegister},
	wire.CmdUpload:       {handle: (*Connection).handleUpload, authenticated: true},
	wire.CmdDownload:     {handle: (*Connection).handleDownload, authenticated: true},
	wire.CmdManageFolder: {handle: (*Connection).handleManageFolder, authenticated: true},
	wire.CmdManageFile:   {handle: (*Connection).handleManageFile, authenticated: true},
	wire.CmdMoveTo:       {handle: (*Connection).handleMoveTo, authenticated: true},
	wire.CmdBack:         {handle: (*Connection).handleBack, authenticated: true},
}

// ============================================================================
// Replies
// ============================================================================

func (c *Connection) reply(status string) error {
	return c.codec.WriteString(status)
}

// status sends a status string and maps it to a metrics outcome.
func (c *Connection) status(ctx context.Context, outcome, status string) (string, error) {
	telemetry.SetAttributes(ctx, telemetry.StatusMsg(status))
	if outcome != metrics.OutcomeOK {
		logger.DebugCtx(ctx, "Command rejected", logger.KeyStatusMsg, status)
	}
	return outcome, c.reply(status)
}

func (c *Connection) ok(ctx context.Context, status string) (string, error) {
	return c.status(ctx, metrics.OutcomeOK, status)
}

func (c *Connection) rejected(ctx context.Context, status string) (string, error) {
	return c.status(ctx, metrics.OutcomeRejected, status)
}

// withoutValue answers an optional-value reply with its empty arm followed
// by status.
func (c *Connection) withoutValue(ctx context.Context, outcome, status string) (string, error) {
	if err := c.codec.WriteAbsent(); err != nil {
		return "", err
	}
	return c.status(ctx, outcome, status)
}

// failed reports a filesystem or store fault. The session stays open.
func (c *Connection) failed(ctx context.Context, prefix string, err error) (string, error) {
	logger.WarnCtx(ctx, "Operation failed", logger.KeyError, err)
	telemetry.RecordError(ctx, err)
	return c.status(ctx, metrics.OutcomeError, wire.WithError(prefix, err))
}

func (c *Connection) recordCommand(command, outcome string, d time.Duration) {
	if c.server.metrics != nil {
		c.server.metrics.RecordCommand(command, outcome, d)
	}
}

// ============================================================================
// Shutdown
// ============================================================================

// handleConnectionClose recovers a handler panic, deregisters the session
// and closes the socket.
func (c *Connection) handleConnectionClose() {
	if r := recover(); r != nil {
		logger.Error("Panic in session handler",
			logger.KeySessionID, c.session.ID,
			logger.KeyClientAddr, c.session.RemoteAddr,
			logger.KeyError, r,
			"stack", string(debug.Stack()))
	}

	c.server.sessions.remove(c.session)
	_ = c.conn.Close()

	logger.Info("Client disconnected",
		logger.KeySessionID, c.session.ID,
		logger.KeyClientAddr, c.session.RemoteAddr,
		logger.KeyUsername, c.session.Username())
}

func (c *Connection) logStreamError(ctx context.Context, what string, err error) {
	var netErr net.Error
	switch {
	case wire.IsClosed(err):
		logger.DebugCtx(ctx, "Connection closed by client")
	case errors.As(err, &netErr) && netErr.Timeout():
		logger.DebugCtx(ctx, "Connection timed out", logger.KeyError, err)
	case errors.Is(err, wire.ErrTooLarge):
		logger.WarnCtx(ctx, what+": value too large", logger.KeyError, err)
	default:
		logger.WarnCtx(ctx, what+": stream fault", logger.KeyError, err)
	}
}

func clientIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
