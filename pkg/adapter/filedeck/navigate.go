package filedeck

import (
	"context"
	"fmt"

	"github.com/marmos91/filedeck/internal/logger"
	"github.com/marmos91/filedeck/internal/protocol/wire"
	"github.com/marmos91/filedeck/pkg/metrics"
)

// handleMoveTo moves the cursor into an existing directory inside the home
// directory. Both outcomes are followed by the resulting current directory.
func (c *Connection) handleMoveTo(ctx context.Context) (string, error) {
	name, err := c.codec.ReadString()
	if err != nil {
		return "", fmt.Errorf("read target directory: %w", err)
	}

	outcome := metrics.OutcomeRejected
	status := wire.StatusInvalidDirectory

	target, err := c.session.Guard().Resolve(c.session.CurrentDir(), name)
	if err == nil && c.server.ws.IsDir(target) {
		c.session.setCurrentDir(target)
		outcome, status = metrics.OutcomeOK, wire.MovedTo(target)
		logger.DebugCtx(ctx, "Moved", logger.KeyDir, target)
	}

	if _, err := c.status(ctx, outcome, status); err != nil {
		return "", err
	}
	return outcome, c.reply(c.session.CurrentDir())
}

// handleBack moves the cursor to its parent unless it is already at the
// home directory. The current directory is always sent afterwards.
func (c *Connection) handleBack(ctx context.Context) (string, error) {
	outcome := metrics.OutcomeRejected
	status := wire.StatusAtRoot

	if parent, ok := c.session.Guard().Parent(c.session.CurrentDir()); ok {
		c.session.setCurrentDir(parent)
		outcome, status = metrics.OutcomeOK, wire.MovedBack(parent)
		logger.DebugCtx(ctx, "Moved back", logger.KeyDir, parent)
	}

	if _, err := c.status(ctx, outcome, status); err != nil {
		return "", err
	}
	return outcome, c.reply(c.session.CurrentDir())
}
