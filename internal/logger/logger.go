// Package logger is the process-wide structured logger. It wraps slog with
// a colored text handler and a JSON handler, and injects session fields
// carried in a context by the *Ctx variants.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

// sink is where and how records are written.
type sink struct {
	w      io.Writer
	format string
	color  bool
}

var (
	// level is shared by every handler, so SetLevel never rebuilds one.
	level = new(slog.LevelVar)

	mu      sync.RWMutex
	out     = sink{w: os.Stdout, format: "text", color: isTerminal(os.Stdout)}
	logFile *os.File
	current = build(out)
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func build(s sink) *slog.Logger {
	if s.format == "json" {
		return slog.New(slog.NewJSONHandler(s.w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(newTextHandler(s.w, level, s.color))
}

// setSink swaps the output and rebuilds the handler.
func setSink(s sink) {
	mu.Lock()
	out = s
	current = build(s)
	mu.Unlock()
}

func getSink() sink {
	mu.RLock()
	defer mu.RUnlock()
	return out
}

// ParseLevel accepts DEBUG, INFO, WARN or ERROR in any case.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Init applies cfg. Output is "stdout", "stderr" or a file path opened for
// append; a file opened by an earlier Init is closed.
func Init(cfg Config) error {
	s := getSink()

	if cfg.Output != "" {
		var f *os.File
		switch strings.ToLower(cfg.Output) {
		case "stdout":
			s.w, s.color = os.Stdout, isTerminal(os.Stdout)
		case "stderr":
			s.w, s.color = os.Stderr, isTerminal(os.Stderr)
		default:
			var err error
			f, err = os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
			}
			s.w, s.color = f, false
		}

		mu.Lock()
		prev := logFile
		logFile = f
		mu.Unlock()
		if prev != nil {
			_ = prev.Close()
		}
	}

	if f := strings.ToLower(cfg.Format); f == "text" || f == "json" {
		s.format = f
	}
	setSink(s)

	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	return nil
}

// InitWithWriter sends logs to w. It is meant for tests.
func InitWithWriter(w io.Writer, lvl, format string, color bool) {
	s := sink{w: w, format: "text", color: color}
	if f := strings.ToLower(format); f == "json" {
		s.format = f
	}
	setSink(s)
	if lvl != "" {
		SetLevel(lvl)
	}
}

// SetLevel sets the minimum level. Unknown names are ignored.
func SetLevel(name string) {
	if l, ok := ParseLevel(name); ok {
		level.Set(l)
	}
}

// SetFormat switches between text and json. Unknown names are ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	s := getSink()
	s.format = format
	setSink(s)
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func log(ctx context.Context, l slog.Level, msg string, args []any) {
	if l < level.Level() {
		return
	}
	get().Log(ctx, l, msg, appendContextFields(ctx, args)...)
}

// Debug logs at debug level. args are alternating keys and values or
// slog.Attr values.
func Debug(msg string, args ...any) { log(context.Background(), slog.LevelDebug, msg, args) }
func Info(msg string, args ...any)  { log(context.Background(), slog.LevelInfo, msg, args) }
func Warn(msg string, args ...any)  { log(context.Background(), slog.LevelWarn, msg, args) }
func Error(msg string, args ...any) { log(context.Background(), slog.LevelError, msg, args) }

// DebugCtx logs at debug level, prefixed with the session fields of the
// LogContext in ctx, if any.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelDebug, msg, args)
}

func InfoCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelInfo, msg, args)
}

func WarnCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelWarn, msg, args)
}

func ErrorCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelError, msg, args)
}

// appendContextFields puts the LogContext fields ahead of args.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := [...]struct{ key, val string }{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeySessionID, lc.SessionID},
		{KeyCommand, lc.Command},
		{KeyUsername, lc.Username},
		{KeyClientIP, lc.ClientIP},
	}

	merged := make([]any, 0, 2*len(fields)+len(args))
	for _, f := range fields {
		if f.val != "" {
			merged = append(merged, f.key, f.val)
		}
	}
	return append(merged, args...)
}

// With returns a logger with bound attributes, writing to the current sink.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// Duration returns the milliseconds elapsed since start.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
