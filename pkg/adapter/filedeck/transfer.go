package filedeck

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/filedeck/internal/logger"
	"github.com/marmos91/filedeck/internal/protocol/wire"
	"github.com/marmos91/filedeck/internal/telemetry"
	"github.com/marmos91/filedeck/pkg/metrics"
)

// handleUpload reads a name and a payload and writes the payload directly
// under the current directory, replacing any existing file. The name must be
// a single path segment.
func (c *Connection) handleUpload(ctx context.Context) (string, error) {
	name, err := c.codec.ReadString()
	if err != nil {
		return "", fmt.Errorf("read file name: %w", err)
	}
	data, err := c.codec.ReadBytes()
	if err != nil {
		return "", fmt.Errorf("read file data: %w", err)
	}
	if c.server.metrics != nil {
		c.server.metrics.RecordBytesTransferred("in", len(data))
	}
	telemetry.SetAttributes(ctx, telemetry.Size(len(data)))

	dst, err := c.session.Guard().ResolveChild(c.session.CurrentDir(), name)
	if err != nil {
		logger.DebugCtx(ctx, "Upload name rejected", logger.KeyPath, name, logger.KeyError, err)
		return c.rejected(ctx, wire.StatusInvalidPath)
	}

	if err := c.server.ws.WriteFile(dst, data); err != nil {
		return c.failed(ctx, wire.PrefixUploadError, err)
	}
	c.refreshIndex(ctx)

	logger.InfoCtx(ctx, "File uploaded", logger.KeyPath, dst, logger.KeySize, len(data))
	return c.ok(ctx, wire.StatusUploaded)
}

// handleDownload sends the bytes of a regular file under the current
// directory as optional-data followed by a status. A refusal sends the
// empty arm and the failure status.
func (c *Connection) handleDownload(ctx context.Context) (string, error) {
	name, err := c.codec.ReadString()
	if err != nil {
		return "", fmt.Errorf("read file name: %w", err)
	}

	src, err := c.session.Guard().Resolve(c.session.CurrentDir(), name)
	if err != nil || !c.server.ws.IsFile(src) {
		return c.withoutValue(ctx, metrics.OutcomeRejected, wire.StatusBadFile)
	}

	data, err := c.server.ws.ReadFile(src)
	if err != nil {
		logger.WarnCtx(ctx, "Download read failed", logger.KeyPath, src, logger.KeyError, err)
		return c.withoutValue(ctx, metrics.OutcomeError, wire.StatusBadFile)
	}

	if err := c.codec.WriteOptionalBytes(data); err != nil {
		return "", err
	}
	if c.server.metrics != nil {
		c.server.metrics.RecordBytesTransferred("out", len(data))
	}
	telemetry.SetAttributes(ctx, telemetry.Size(len(data)))

	logger.InfoCtx(ctx, "File downloaded", logger.KeyPath, src, logger.KeySize, len(data))
	return c.ok(ctx, wire.StatusDownloaded)
}

// refreshIndex rebuilds the path index from the current directory.
// Failures are logged only; the client never sees them.
func (c *Connection) refreshIndex(ctx context.Context) {
	start := time.Now()
	n, err := c.server.indexer.Refresh(ctx, c.session.Username(), c.session.CurrentDir())
	if c.server.metrics != nil {
		c.server.metrics.RecordIndexRefresh(time.Since(start), n, err)
	}
	if err != nil {
		logger.WarnCtx(ctx, "Path index refresh failed", logger.KeyError, err)
		return
	}
	logger.DebugCtx(ctx, "Path index refreshed", logger.KeyEntries, n)
}
