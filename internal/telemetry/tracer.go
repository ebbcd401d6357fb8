package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys recorded on session spans.
const (
	AttrClientAddr = "client.address"
	AttrSessionID  = "session.id"
	AttrUsername   = "user.name"
	AttrCommand    = "filedeck.command"
	AttrSubCommand = "filedeck.subcommand"
	AttrStatusMsg  = "filedeck.status_msg"
	AttrPath       = "fs.path"
	AttrSize       = "fs.size"
	AttrEntries    = "fs.entries"
)

// Span names.
const (
	// SpanSession covers a whole connection, from accept to close.
	SpanSession = "filedeck.session"

	// SpanCommandPrefix prefixes one span per dispatched command
	// (e.g. "filedeck.upload", "filedeck.manage_folder").
	SpanCommandPrefix = "filedeck."

	SpanIndexRefresh  = "pathindex.refresh"
	SpanRegistryStore = "registry.save"
)

func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

func SubCommand(name string) attribute.KeyValue {
	return attribute.String(AttrSubCommand, name)
}

func StatusMsg(msg string) attribute.KeyValue {
	return attribute.String(AttrStatusMsg, msg)
}

func Path(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

func Size(n int) attribute.KeyValue {
	return attribute.Int(AttrSize, n)
}

func Entries(n int) attribute.KeyValue {
	return attribute.Int(AttrEntries, n)
}

// StartSessionSpan starts the root span for an accepted connection.
func StartSessionSpan(ctx context.Context, sessionID, clientAddr string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanSession,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(SessionID(sessionID), ClientAddr(clientAddr)),
	)
}

// StartCommandSpan starts a span for one command token. Spaces in the
// token are replaced so span names stay a single identifier.
func StartCommandSpan(ctx context.Context, command string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String(AttrCommand, command)}, attrs...)
	return StartSpan(ctx, SpanCommandPrefix+spanSafe(command),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

func spanSafe(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c == ' ' || c == '-' {
			b[i] = '_'
		}
	}
	return string(b)
}
