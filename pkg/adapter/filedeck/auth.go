package filedeck

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/marmos91/filedeck/internal/logger"
	"github.com/marmos91/filedeck/internal/protocol/wire"
	"github.com/marmos91/filedeck/internal/telemetry"
	"github.com/marmos91/filedeck/pkg/metrics"
	"github.com/marmos91/filedeck/pkg/pathguard"
	"github.com/marmos91/filedeck/pkg/registry"
)

// handleLogin reads credential pairs until one matches a registered user,
// answering each attempt with success or fail. There is no attempt limit.
// After success the user's home directory is created if needed and its
// path is sent.
func (c *Connection) handleLogin(ctx context.Context) (string, error) {
	for {
		creds, err := c.codec.ReadCredentials()
		if err != nil {
			return "", fmt.Errorf("read credentials: %w", err)
		}

		user, ok := c.server.users.Find(creds.Username, creds.Password)
		if ok && pathguard.ValidName(user.Username) != nil {
			// Loaded from a store edited by hand; it cannot name a directory.
			logger.WarnCtx(ctx, "Refusing login for unusable username", logger.KeyUsername, user.Username)
			ok = false
		}
		if c.server.metrics != nil {
			c.server.metrics.RecordLogin(ok)
		}
		if !ok {
			logger.DebugCtx(ctx, "Login failed", logger.KeyUsername, creds.Username)
			if err := c.reply(wire.StatusFail); err != nil {
				return "", err
			}
			continue
		}

		home := filepath.Join(c.server.uploadRoot, user.Username)
		if err := c.server.ws.MkdirAll(home); err != nil {
			return "", fmt.Errorf("create home directory: %w", err)
		}
		guard, err := pathguard.New(home)
		if err != nil {
			return "", err
		}

		c.session.login(user.Username, guard)
		c.server.sessions.loggedIn()
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithUsername(user.Username))
		telemetry.SetAttributes(ctx, telemetry.Username(user.Username))

		if err := c.reply(wire.StatusSuccess); err != nil {
			return "", err
		}
		if err := c.reply(guard.Root()); err != nil {
			return "", err
		}

		logger.InfoCtx(ctx, "User logged in", logger.KeyDir, guard.Root())
		return metrics.OutcomeOK, nil
	}
}

// handleRegister reads one credential pair and adds it to the registry.
// The registry persists the full user set before acknowledging.
func (c *Connection) handleRegister(ctx context.Context) (string, error) {
	creds, err := c.codec.ReadCredentials()
	if err != nil {
		return "", fmt.Errorf("read credentials: %w", err)
	}
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithUsername(creds.Username))

	outcome, status := c.register(ctx, creds)
	if c.server.metrics != nil {
		c.server.metrics.RecordRegistration(outcome)
	}

	if outcome == "registered" {
		logger.InfoCtx(ctx, "User registered")
		return c.ok(ctx, status)
	}
	if outcome == "error" {
		return metrics.OutcomeError, c.reply(status)
	}
	return c.rejected(ctx, status)
}

func (c *Connection) register(ctx context.Context, creds wire.Credentials) (outcome, status string) {
	if pathguard.ValidName(creds.Username) != nil {
		return "invalid", wire.StatusInvalidUsername
	}

	err := c.server.users.Add(ctx, registry.User{Username: creds.Username, Password: creds.Password})
	switch {
	case err == nil:
		return "registered", wire.StatusRegistered
	case errors.Is(err, registry.ErrUserExists):
		return "exists", wire.StatusExists
	default:
		logger.ErrorCtx(ctx, "Failed to persist user registry", logger.KeyError, err)
		telemetry.RecordError(ctx, err)
		return "error", wire.StatusRegistrationFailed
	}
}
