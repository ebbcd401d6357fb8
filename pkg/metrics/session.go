package metrics

import "time"

// Command outcomes recorded by SessionMetrics.RecordCommand.
const (
	OutcomeOK       = "ok"       // The command did what was asked
	OutcomeRejected = "rejected" // A validation failure reported to the client
	OutcomeError    = "error"    // A filesystem or store fault reported to the client
)

// SessionMetrics provides observability for the FileDeck adapter.
//
// Implementations can collect metrics about the connection lifecycle,
// command handling and the two shared stores. Pass nil to disable
// collection; the adapter guards every call.
type SessionMetrics interface {
	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections closed after the
	// shutdown timeout expired.
	RecordConnectionForceClosed()

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// SetActiveSessions updates the number of logged-in sessions.
	SetActiveSessions(count int)

	// RecordCommand records one handled command token with its outcome.
	RecordCommand(command string, outcome string, duration time.Duration)

	// RecordBytesTransferred records upload ("in") or download ("out") bytes.
	RecordBytesTransferred(direction string, bytes int)

	// RecordLogin records one authentication attempt.
	RecordLogin(success bool)

	// RecordRegistration records a register outcome
	// ("registered", "exists", "invalid" or "error").
	RecordRegistration(outcome string)

	// RecordIndexRefresh records one path index rebuild.
	RecordIndexRefresh(duration time.Duration, entries int, err error)
}
