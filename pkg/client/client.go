// Package client drives a FileDeck server over one TCP connection.
//
// Every method sends its request values and reads the reply in the exact
// order the server expects. A Client is not safe for concurrent use.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/marmos91/filedeck/internal/protocol/wire"
)

// ErrLoginFailed is returned by Login when the server answers fail. The
// server is then still waiting for credentials; call TryCredentials again.
var ErrLoginFailed = errors.New("login failed")

// Client is a FileDeck protocol client.
type Client struct {
	conn  net.Conn
	codec *wire.Codec
	dir   string
}

// Dial connects to addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	d := net.Dialer{Timeout: 10 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(conn), nil
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	return &Client{conn: conn, codec: wire.NewCodec(conn, 0)}
}

// Close closes the connection without sending exit.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Dir returns the last current directory reported by the server.
func (c *Client) Dir() string {
	return c.dir
}

func (c *Client) send(values ...string) error {
	for _, v := range values {
		if err := c.codec.WriteString(v); err != nil {
			return err
		}
	}
	return nil
}

// request sends values and reads one status string.
func (c *Client) request(values ...string) (string, error) {
	if err := c.send(values...); err != nil {
		return "", err
	}
	return c.codec.ReadString()
}

// Command sends a bare top-level token and reads one status. It is meant
// for tokens the server rejects.
func (c *Client) Command(token string) (string, error) {
	return c.request(token)
}

// Exit ends the session. The server closes the connection.
func (c *Client) Exit() error {
	if err := c.send(wire.CmdExit); err != nil {
		return err
	}
	return c.Close()
}

// ============================================================================
// Authentication
// ============================================================================

// StartLogin enters the server's login loop.
func (c *Client) StartLogin() error {
	return c.send(wire.CmdLogin)
}

// TryCredentials sends one credential pair inside the login loop. On
// success it returns the home directory and the loop is over.
func (c *Client) TryCredentials(username, password string) (string, bool, error) {
	if err := c.codec.WriteCredentials(wire.Credentials{Username: username, Password: password}); err != nil {
		return "", false, err
	}
	status, err := c.codec.ReadString()
	if err != nil {
		return "", false, err
	}
	switch status {
	case wire.StatusSuccess:
	case wire.StatusFail:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("unexpected login reply %q", status)
	}

	home, err := c.codec.ReadString()
	if err != nil {
		return "", false, err
	}
	c.dir = home
	return home, true, nil
}

// Login starts the login loop and makes one attempt.
func (c *Client) Login(username, password string) (string, error) {
	if err := c.StartLogin(); err != nil {
		return "", err
	}
	home, ok, err := c.TryCredentials(username, password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLoginFailed
	}
	return home, nil
}

// Register asks the server to add a user and returns its status.
func (c *Client) Register(username, password string) (string, error) {
	if err := c.send(wire.CmdRegister); err != nil {
		return "", err
	}
	if err := c.codec.WriteCredentials(wire.Credentials{Username: username, Password: password}); err != nil {
		return "", err
	}
	return c.codec.ReadString()
}

// ============================================================================
// Transfers
// ============================================================================

// Upload stores data as name in the current directory.
func (c *Client) Upload(name string, data []byte) (string, error) {
	if err := c.send(wire.CmdUpload, name); err != nil {
		return "", err
	}
	if err := c.codec.WriteBytes(data); err != nil {
		return "", err
	}
	return c.codec.ReadString()
}

// Download fetches name from the current directory. data is nil when the
// server refused.
func (c *Client) Download(name string) ([]byte, string, error) {
	if err := c.send(wire.CmdDownload, name); err != nil {
		return nil, "", err
	}

	data, _, err := c.codec.ReadOptionalBytes()
	if err != nil {
		return nil, "", err
	}
	status, err := c.codec.ReadString()
	return data, status, err
}

// ============================================================================
// Navigation
// ============================================================================

// MoveTo moves into name and returns the status and resulting directory.
func (c *Client) MoveTo(name string) (string, string, error) {
	status, err := c.request(wire.CmdMoveTo, name)
	if err != nil {
		return "", "", err
	}
	return c.readDir(status)
}

// Back moves to the parent directory.
func (c *Client) Back() (string, string, error) {
	status, err := c.request(wire.CmdBack)
	if err != nil {
		return "", "", err
	}
	return c.readDir(status)
}

func (c *Client) readDir(status string) (string, string, error) {
	dir, err := c.codec.ReadString()
	if err != nil {
		return "", "", err
	}
	c.dir = dir
	return status, dir, nil
}
