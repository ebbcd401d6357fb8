// Package adapter provides the TCP lifecycle shared by protocol adapters:
// listening, one goroutine per accepted connection, connection tracking and
// graceful shutdown.
package adapter

import "context"

// Adapter is a protocol server managed by the server lifecycle.
//
// Lifecycle:
//  1. Creation: the adapter is built with its configuration and collaborators
//  2. Startup: Serve() starts listening and blocks until shutdown
//  3. Shutdown: Stop() initiates graceful shutdown with a timeout
//
// Stop may be called concurrently with Serve and more than once.
type Adapter interface {
	// Serve starts the protocol server and blocks until ctx is cancelled or
	// the listener fails. A bind failure is returned immediately.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown, waiting for active connections
	// until ctx is done.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logs.
	Protocol() string

	// Port returns the configured TCP port.
	Port() int
}
