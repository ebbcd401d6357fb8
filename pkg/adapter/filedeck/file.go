package filedeck

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/marmos91/filedeck/internal/logger"
	"github.com/marmos91/filedeck/internal/protocol/wire"
	"github.com/marmos91/filedeck/internal/telemetry"
	"github.com/marmos91/filedeck/pkg/metrics"
	"github.com/marmos91/filedeck/pkg/pathguard"
)

// handleManageFile reads a file sub-command and runs it. Paths are relative
// to the current directory; a leading slash starts at the home directory.
// Exit returns to the command loop without a reply.
func (c *Connection) handleManageFile(ctx context.Context) (string, error) {
	action, err := c.codec.ReadString()
	if err != nil {
		return "", fmt.Errorf("read file command: %w", err)
	}
	telemetry.SetAttributes(ctx, telemetry.SubCommand(action))
	logger.DebugCtx(ctx, "File command", logger.KeySubCommand, action)

	switch action {
	case wire.FileCreate:
		return c.createFile(ctx)
	case wire.FileRename:
		return c.renameFile(ctx)
	case wire.FileDelete:
		return c.deleteFile(ctx)
	case wire.FileView:
		return c.viewFile(ctx)
	case wire.FileCopy:
		return c.transferFile(ctx, false)
	case wire.FileMove:
		return c.transferFile(ctx, true)
	case wire.FileExit:
		return metrics.OutcomeOK, nil
	default:
		return c.rejected(ctx, wire.StatusBadFileCommand)
	}
}

// readPaths reads n path arguments before any of them is validated, so a
// rejected request never leaves unread values on the stream.
func (c *Connection) readPaths(n int) ([]string, error) {
	paths := make([]string, n)
	for i := range paths {
		p, err := c.codec.ReadString()
		if err != nil {
			return nil, fmt.Errorf("read path %d: %w", i+1, err)
		}
		paths[i] = p
	}
	return paths, nil
}

func (c *Connection) createFile(ctx context.Context) (string, error) {
	args, err := c.readPaths(1)
	if err != nil {
		return "", err
	}

	p, err := c.resolveEntry(args[0])
	if err != nil {
		return c.rejected(ctx, wire.StatusInvalidPath)
	}
	if c.server.ws.Exists(p) {
		return c.rejected(ctx, wire.StatusFileExists)
	}
	if err := c.server.ws.CreateFile(p); err != nil {
		return c.failed(ctx, wire.PrefixFileOpError, err)
	}
	c.refreshIndex(ctx)

	logger.InfoCtx(ctx, "File created", logger.KeyPath, p)
	return c.ok(ctx, wire.StatusFileCreated)
}

// renameFile renames a file in place; the new name is a sibling of the
// source and must be a single path segment.
func (c *Connection) renameFile(ctx context.Context) (string, error) {
	args, err := c.readPaths(2)
	if err != nil {
		return "", err
	}

	src, err := c.resolveEntry(args[0])
	if err != nil {
		return c.rejected(ctx, wire.StatusInvalidPath)
	}
	if pathguard.ValidName(args[1]) != nil {
		return c.rejected(ctx, wire.StatusInvalidPath)
	}
	dst := filepath.Join(filepath.Dir(src), args[1])

	if !c.server.ws.Exists(src) {
		return c.rejected(ctx, wire.StatusSourceMissing)
	}
	if err := c.server.ws.Rename(src, dst); err != nil {
		return c.failed(ctx, wire.PrefixFileOpError, err)
	}
	c.refreshIndex(ctx)

	logger.InfoCtx(ctx, "File renamed", logger.KeyOldPath, src, logger.KeyNewPath, dst)
	return c.ok(ctx, wire.StatusFileRenamed)
}

func (c *Connection) deleteFile(ctx context.Context) (string, error) {
	args, err := c.readPaths(1)
	if err != nil {
		return "", err
	}

	p, err := c.resolveEntry(args[0])
	if err != nil {
		return c.rejected(ctx, wire.StatusInvalidPath)
	}
	if !c.server.ws.IsFile(p) {
		return c.rejected(ctx, wire.StatusFileMissing)
	}
	if err := c.server.ws.Remove(p); err != nil {
		return c.failed(ctx, wire.PrefixFileOpError, err)
	}
	c.refreshIndex(ctx)

	logger.InfoCtx(ctx, "File deleted", logger.KeyPath, p)
	return c.ok(ctx, wire.StatusFileDeleted)
}

// viewFile sends the file's lines as optional-data followed by a status.
// Any failure sends the empty arm and the missing-file status.
func (c *Connection) viewFile(ctx context.Context) (string, error) {
	args, err := c.readPaths(1)
	if err != nil {
		return "", err
	}

	p, err := c.session.Guard().Resolve(c.session.CurrentDir(), args[0])
	if err != nil || !c.server.ws.IsFile(p) {
		return c.withoutValue(ctx, metrics.OutcomeRejected, wire.StatusFileMissing)
	}

	lines, err := c.server.ws.ReadLines(p)
	if err != nil {
		logger.WarnCtx(ctx, "Reading file failed", logger.KeyPath, p, logger.KeyError, err)
		return c.withoutValue(ctx, metrics.OutcomeError, wire.StatusFileMissing)
	}
	if err := c.codec.WriteOptionalStrings(lines); err != nil {
		return "", err
	}
	telemetry.SetAttributes(ctx, telemetry.Entries(len(lines)))
	return c.ok(ctx, wire.StatusFileRetrieved)
}

// transferFile copies or moves a file into an existing directory, keeping
// its base name and replacing any file already there.
func (c *Connection) transferFile(ctx context.Context, move bool) (string, error) {
	args, err := c.readPaths(2)
	if err != nil {
		return "", err
	}

	guard := c.session.Guard()
	src, err := c.resolveEntry(args[0])
	if err != nil {
		return c.rejected(ctx, wire.StatusInvalidPath)
	}
	destDir, err := guard.Resolve(c.session.CurrentDir(), args[1])
	if err != nil {
		return c.rejected(ctx, wire.StatusInvalidPath)
	}

	if !c.server.ws.IsFile(src) {
		return c.rejected(ctx, wire.StatusSourceNotFile)
	}
	if !c.server.ws.IsDir(destDir) {
		return c.rejected(ctx, wire.StatusDestMissing)
	}

	dst := filepath.Join(destDir, filepath.Base(src))
	done := wire.StatusFileCopied
	if move {
		done = wire.StatusFileMoved
	}
	if dst == src {
		return c.ok(ctx, done)
	}

	if move {
		err = c.server.ws.Rename(src, dst)
	} else {
		err = c.server.ws.CopyFile(src, dst)
	}
	if err != nil {
		return c.failed(ctx, wire.PrefixFileOpError, err)
	}
	c.refreshIndex(ctx)

	logger.InfoCtx(ctx, "File transferred", "move", move, logger.KeyOldPath, src, logger.KeyNewPath, dst)
	return c.ok(ctx, done)
}
