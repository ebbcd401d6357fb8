package filedeck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marmos91/filedeck/internal/logger"
	"github.com/marmos91/filedeck/internal/protocol/wire"
	"github.com/marmos91/filedeck/internal/telemetry"
	"github.com/marmos91/filedeck/pkg/metrics"
	"github.com/marmos91/filedeck/pkg/pathguard"
	"github.com/marmos91/filedeck/pkg/workspace"
)

// handleManageFolder reads a folder sub-command and runs it against the
// current directory. Back returns to the command loop without a reply.
func (c *Connection) handleManageFolder(ctx context.Context) (string, error) {
	action, err := c.codec.ReadString()
	if err != nil {
		return "", fmt.Errorf("read folder command: %w", err)
	}
	telemetry.SetAttributes(ctx, telemetry.SubCommand(action))
	logger.DebugCtx(ctx, "Folder command", logger.KeySubCommand, action)

	switch action {
	case wire.FolderCreate:
		return c.createDirectory(ctx)
	case wire.FolderRename:
		return c.renameDirectory(ctx)
	case wire.FolderDelete:
		return c.deleteDirectory(ctx)
	case wire.FolderView:
		return c.viewFolder(ctx)
	case wire.FolderBack, wire.FolderBackToMenu:
		return metrics.OutcomeOK, nil
	default:
		return c.rejected(ctx, wire.StatusBadFolderCommand)
	}
}

// resolveEntry resolves name for an operation that creates, replaces or
// removes it. The home directory itself is never a valid target.
func (c *Connection) resolveEntry(name string) (string, error) {
	guard := c.session.Guard()
	p, err := guard.Resolve(c.session.CurrentDir(), name)
	if err != nil {
		return "", err
	}
	if p == guard.Root() {
		return "", pathguard.ErrOutsideRoot
	}
	return p, nil
}

func (c *Connection) createDirectory(ctx context.Context) (string, error) {
	name, err := c.codec.ReadString()
	if err != nil {
		return "", fmt.Errorf("read directory name: %w", err)
	}

	p, err := c.resolveEntry(name)
	if err != nil {
		return c.rejected(ctx, wire.StatusInvalidPath)
	}
	if err := c.server.ws.Mkdir(p); err != nil {
		return c.failed(ctx, wire.PrefixCreateDirErr, err)
	}
	c.refreshIndex(ctx)

	logger.InfoCtx(ctx, "Directory created", logger.KeyPath, p)
	return c.ok(ctx, wire.StatusDirCreated)
}

func (c *Connection) renameDirectory(ctx context.Context) (string, error) {
	oldName, err := c.codec.ReadString()
	if err != nil {
		return "", fmt.Errorf("read directory name: %w", err)
	}
	newName, err := c.codec.ReadString()
	if err != nil {
		return "", fmt.Errorf("read new directory name: %w", err)
	}

	src, err := c.resolveEntry(oldName)
	if err != nil {
		return c.rejected(ctx, wire.StatusInvalidPath)
	}
	dst, err := c.resolveEntry(newName)
	if err != nil {
		return c.rejected(ctx, wire.StatusInvalidPath)
	}

	if !c.server.ws.IsDir(src) {
		return c.rejected(ctx, wire.StatusDirMissing)
	}
	if err := c.server.ws.Rename(src, dst); err != nil {
		return c.failed(ctx, wire.PrefixRenameDirErr, err)
	}
	c.refreshIndex(ctx)

	logger.InfoCtx(ctx, "Directory renamed", logger.KeyOldPath, src, logger.KeyNewPath, dst)
	return c.ok(ctx, wire.StatusDirRenamed)
}

// deleteDirectory removes an empty directory directly. A populated one is
// only removed, recursively, after the client answers the confirmation
// prompt with Y.
func (c *Connection) deleteDirectory(ctx context.Context) (string, error) {
	name, err := c.codec.ReadString()
	if err != nil {
		return "", fmt.Errorf("read directory name: %w", err)
	}

	p, err := c.resolveEntry(name)
	if err != nil {
		return c.rejected(ctx, wire.StatusInvalidPath)
	}
	if !c.server.ws.Exists(p) {
		return c.rejected(ctx, wire.StatusDirMissing)
	}

	outcome, err := c.removeDirectory(ctx, p)
	if err != nil {
		return "", err
	}
	c.refreshIndex(ctx)
	return outcome, nil
}

func (c *Connection) removeDirectory(ctx context.Context, p string) (string, error) {
	if !c.server.ws.IsDir(p) {
		return c.failed(ctx, wire.PrefixDeleteDirErr, fmt.Errorf("%s: %w", p, workspace.ErrNotDir))
	}

	empty, err := c.server.ws.IsEmptyDir(p)
	if err != nil {
		return c.failed(ctx, wire.PrefixDeleteDirErr, err)
	}
	if empty {
		if err := c.server.ws.Remove(p); err != nil {
			return c.failed(ctx, wire.PrefixDeleteDirErr, err)
		}
		logger.InfoCtx(ctx, "Directory deleted", logger.KeyPath, p)
		return c.ok(ctx, wire.StatusDirDeleted)
	}

	if err := c.reply(wire.StatusDirConfirm); err != nil {
		return "", err
	}
	answer, err := c.readConfirmation()
	if err != nil {
		return "", fmt.Errorf("read confirmation: %w", err)
	}
	if !strings.EqualFold(answer, wire.ConfirmYes) {
		logger.DebugCtx(ctx, "Directory deletion cancelled", logger.KeyPath, p)
		return c.rejected(ctx, wire.StatusDeleteCancelled)
	}

	if err := c.server.ws.RemoveTree(p); err != nil {
		return c.failed(ctx, wire.PrefixDeleteDirErr, err)
	}
	logger.InfoCtx(ctx, "Directory tree deleted", logger.KeyPath, p)
	return c.ok(ctx, wire.StatusDirDeleted)
}

// readConfirmation reads the one token answering a delete prompt, bounded
// by ConfirmTimeout when set.
func (c *Connection) readConfirmation() (string, error) {
	timeout := c.server.config.ConfirmTimeout
	if timeout <= 0 {
		return c.codec.ReadString()
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", err
	}
	answer, err := c.codec.ReadString()
	if err != nil {
		return "", err
	}
	if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
		return "", err
	}
	return answer, nil
}

func (c *Connection) viewFolder(ctx context.Context) (string, error) {
	names, err := c.server.ws.ListNames(c.session.CurrentDir())
	if err != nil {
		logger.WarnCtx(ctx, "Listing current directory failed", logger.KeyError, err)
		return metrics.OutcomeError, c.codec.WriteStrings(nil)
	}
	telemetry.SetAttributes(ctx, telemetry.Entries(len(names)))
	return metrics.OutcomeOK, c.codec.WriteStrings(names)
}
