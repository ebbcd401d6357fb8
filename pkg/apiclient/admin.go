package apiclient

import (
	"context"
	"net/url"

	"github.com/marmos91/filedeck/pkg/adapter/filedeck"
	"github.com/marmos91/filedeck/pkg/api/handlers"
)

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	var data map[string]string
	if err := c.get(ctx, "/health", &data); err != nil {
		return nil, err
	}
	return data, nil
}

// Ready calls GET /health/ready. A not-ready server yields an *APIError
// carrying the probe failure.
func (c *Client) Ready(ctx context.Context) (map[string]string, error) {
	var data map[string]string
	if err := c.get(ctx, "/health/ready", &data); err != nil {
		return nil, err
	}
	return data, nil
}

// ListSessions calls GET /api/v1/sessions.
func (c *Client) ListSessions(ctx context.Context) (*handlers.SessionList, error) {
	var list handlers.SessionList
	if err := c.get(ctx, "/api/v1/sessions", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetSession calls GET /api/v1/sessions/{id}.
func (c *Client) GetSession(ctx context.Context, id string) (*filedeck.SessionInfo, error) {
	var info filedeck.SessionInfo
	if err := c.get(ctx, "/api/v1/sessions/"+url.PathEscape(id), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListUsers calls GET /api/v1/users.
func (c *Client) ListUsers(ctx context.Context) (*handlers.UserList, error) {
	var list handlers.UserList
	if err := c.get(ctx, "/api/v1/users", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// AddUser calls POST /api/v1/users. The running server adds the user to
// its live registry and persists it.
func (c *Client) AddUser(ctx context.Context, username, password string) (*handlers.CreatedUser, error) {
	req := handlers.CreateUserRequest{Username: username, Password: password}
	var created handlers.CreatedUser
	if err := c.post(ctx, "/api/v1/users", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
