package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging. Use these keys consistently so
// log aggregation can query sessions and commands across the server.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// ========================================================================
	// Session & Connection
	// ========================================================================
	KeySessionID  = "session_id"  // Session identifier assigned on accept
	KeyClientIP   = "client_ip"   // Client IP address
	KeyClientAddr = "client_addr" // Full remote address (ip:port)
	KeyUsername   = "username"    // Authenticated username
	KeyActive     = "active"      // Active connection count

	// ========================================================================
	// Commands
	// ========================================================================
	KeyCommand    = "command"    // Top-level command token
	KeySubCommand = "subcommand" // Folder/file management sub-command
	KeyStatusMsg  = "status_msg" // Status literal sent back to the client

	// ========================================================================
	// File System Operations
	// ========================================================================
	KeyPath    = "path"     // Resolved absolute path
	KeyOldPath = "old_path" // Source path for rename/copy/move
	KeyNewPath = "new_path" // Destination path for rename/copy/move
	KeyDir     = "dir"      // Current directory cursor
	KeySize    = "size"     // Payload size in bytes
	KeyEntries = "entries"  // Number of entries listed or indexed

	// ========================================================================
	// Storage
	// ========================================================================
	KeyStoreType = "store_type" // Backend type: file, sqlite, postgres, badger
	KeyUsers     = "users"      // Number of registered users

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// ============================================================================
// Field constructors
// ============================================================================

// SessionID returns a slog.Attr for the session identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// ClientAddr returns a slog.Attr for the remote address
func ClientAddr(addr string) slog.Attr {
	return slog.String(KeyClientAddr, addr)
}

// Username returns a slog.Attr for the authenticated username
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Command returns a slog.Attr for a command token
func Command(cmd string) slog.Attr {
	return slog.String(KeyCommand, cmd)
}

// StatusMsg returns a slog.Attr for a status literal
func StatusMsg(msg string) slog.Attr {
	return slog.String(KeyStatusMsg, msg)
}

// Path returns a slog.Attr for a file/directory path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Dir returns a slog.Attr for the current directory cursor
func Dir(p string) slog.Attr {
	return slog.String(KeyDir, p)
}

// Size returns a slog.Attr for a payload size
func Size(n int) slog.Attr {
	return slog.Int(KeySize, n)
}

// Err returns a slog.Attr for an error. A nil error yields an empty string.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr with the elapsed time since start.
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}
