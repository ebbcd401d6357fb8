package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer until cleanup runs.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)
	prev := getSink()
	prevLevel := level.Level()
	setSink(sink{w: buf, format: prev.format})

	return buf, func() {
		setSink(prev)
		level.Set(prevLevel)
	}
}

func decodeJSONLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry), buf.String())
	return entry
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		visible  []string
		filtered []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf, cleanup := captureOutput()
			defer cleanup()

			SetLevel(tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, msg := range tt.visible {
				assert.Contains(t, out, msg)
			}
			for _, msg := range tt.filtered {
				assert.NotContains(t, out, msg)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	t.Run("CaseInsensitive", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("dEbUg")
		Debug("lowercase works")
		assert.Contains(t, buf.String(), "lowercase works")
	})

	t.Run("InvalidLevelIgnored", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetLevel("LOUD")
		Debug("hidden")
		Info("shown")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "shown")
	})
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("warn")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelWarn, l)

	_, ok = ParseLevel("LOUD")
	assert.False(t, ok)
}

func TestInitFileOutput(t *testing.T) {
	_, cleanup := captureOutput()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "filedeck.log")
	require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
	Info("to file", KeyUsername, "carol")
	Debug("filtered")

	// Switching away closes the file.
	require.NoError(t, Init(Config{Output: "stderr"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] to file username=carol")
	assert.NotContains(t, string(data), "filtered")
	assert.NotContains(t, string(data), "\033")

	err = Init(Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestTextHandlerGroupsAndBoundAttrs(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")
	With("session", "s-9").WithGroup("req").Info("bound", "cmd", "upload", slog.Group("peer", "ip", "10.0.0.1"))

	out := buf.String()
	assert.Contains(t, out, "[INFO] bound session=s-9 req.cmd=upload req.peer.ip=10.0.0.1")
}

// ============================================================================
// Formatting Tests
// ============================================================================

func TestTextFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")
	Info("session opened", KeyUsername, "alice", KeyActive, 3)

	out := buf.String()
	assert.Regexp(t, `\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\]`, out)
	assert.Contains(t, out, "[INFO] session opened")
	assert.Contains(t, out, "username=alice")
	assert.Contains(t, out, "active=3")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")
	Info("file uploaded", KeyPath, "/srv/alice/a.txt", KeySize, 42)

	entry := decodeJSONLine(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "file uploaded", entry["msg"])
	assert.Equal(t, "/srv/alice/a.txt", entry["path"])
	assert.Equal(t, float64(42), entry["size"])
}

func TestInvalidFormatIgnored(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")
	SetFormat("xml")
	Info("still text")

	assert.Contains(t, buf.String(), "[INFO] still text")
}

func TestFieldConstructors(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")
	Info("attrs", SessionID("s-1"), Command("upload"), Err(errors.New("boom")))

	entry := decodeJSONLine(t, buf)
	assert.Equal(t, "s-1", entry[KeySessionID])
	assert.Equal(t, "upload", entry[KeyCommand])
	assert.Equal(t, "boom", entry[KeyError])
	assert.Equal(t, "", Err(nil).Value.String())
}

// ============================================================================
// Context Logging Tests
// ============================================================================

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetFormat("json")

		lc := NewLogContext("sess-1", "10.0.0.7").
			WithUsername("alice").
			WithCommand("manage folder").
			WithTrace("trace-abc", "span-xyz")
		ctx := WithContext(context.Background(), lc)

		InfoCtx(ctx, "command handled", "extra", "value")

		entry := decodeJSONLine(t, buf)
		assert.Equal(t, "trace-abc", entry[KeyTraceID])
		assert.Equal(t, "span-xyz", entry[KeySpanID])
		assert.Equal(t, "sess-1", entry[KeySessionID])
		assert.Equal(t, "manage folder", entry[KeyCommand])
		assert.Equal(t, "alice", entry[KeyUsername])
		assert.Equal(t, "10.0.0.7", entry[KeyClientIP])
		assert.Equal(t, "value", entry["extra"])
	})

	t.Run("ContextWithoutLogContext", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		require.NotPanics(t, func() {
			InfoCtx(context.Background(), "plain")
		})
		assert.Contains(t, buf.String(), "plain")
	})

	t.Run("DebugCtxFilteredAtInfo", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		DebugCtx(WithContext(context.Background(), NewLogContext("s", "ip")), "hidden")
		assert.Empty(t, buf.String())
	})
}

func TestLogContextCopies(t *testing.T) {
	lc := NewLogContext("sess-1", "127.0.0.1")
	assert.False(t, lc.StartTime.IsZero())

	withUser := lc.WithUsername("bob")
	withCmd := withUser.WithCommand("upload")

	assert.Empty(t, lc.Username)
	assert.Equal(t, "bob", withUser.Username)
	assert.Empty(t, withUser.Command)
	assert.Equal(t, "upload", withCmd.Command)
	assert.Equal(t, "bob", withCmd.Username)

	var nilLC *LogContext
	assert.Nil(t, nilLC.Clone())
	assert.Nil(t, nilLC.WithCommand("x"))
	assert.Zero(t, nilLC.DurationMs())
}

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")

	const goroutines = 8
	const perGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				Info("concurrent", "id", id, "iteration", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, goroutines*perGoroutine)
}
