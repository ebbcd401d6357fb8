package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TextTimeLayout is the timestamp written in brackets at the start of each
// text line.
const TextTimeLayout = "2006-01-02 15:04:05"

const (
	ansiReset = "\033[0m"
	ansiKey   = "\033[36m"
)

type levelStyle struct {
	name  string
	color string
}

func styleFor(l slog.Level) levelStyle {
	switch {
	case l < slog.LevelInfo:
		return levelStyle{"DEBUG", "\033[90m"}
	case l < slog.LevelWarn:
		return levelStyle{"INFO", "\033[32m"}
	case l < slog.LevelError:
		return levelStyle{"WARN", "\033[33m"}
	default:
		return levelStyle{"ERROR", "\033[31m"}
	}
}

// textHandler writes one line per record:
//
//	[2006-01-02 15:04:05] [LEVEL] message key=value ...
//
// Attributes bound with WithAttrs are rendered once and reused.
type textHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	color  bool
	prefix string // group path, "a.b."
	bound  []byte // pre-rendered attrs
}

func newTextHandler(w io.Writer, level slog.Leveler, color bool) *textHandler {
	return &textHandler{w: w, mu: &sync.Mutex{}, level: level, color: color}
}

func (h *textHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	style := styleFor(r.Level)

	buf := make([]byte, 0, 128+len(h.bound))
	buf = append(buf, '[')
	buf = r.Time.AppendFormat(buf, TextTimeLayout)
	buf = append(buf, "] ["...)
	if h.color {
		buf = append(buf, style.color...)
		buf = append(buf, style.name...)
		buf = append(buf, ansiReset...)
	} else {
		buf = append(buf, style.name...)
	}
	buf = append(buf, "] "...)
	buf = append(buf, r.Message...)
	buf = append(buf, h.bound...)

	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, h.prefix, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.bound = append([]byte(nil), h.bound...)
	for _, a := range attrs {
		c.bound = h.appendAttr(c.bound, h.prefix, a)
	}
	return &c
}

func (h *textHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func (h *textHandler) appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			buf = h.appendAttr(buf, prefix, ga)
		}
		return buf
	}

	buf = append(buf, ' ')
	if h.color {
		buf = append(buf, ansiKey...)
	}
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	if h.color {
		buf = append(buf, ansiReset...)
	}
	buf = append(buf, '=')

	val := renderValue(a.Value)
	if strings.ContainsAny(val, " \t\n\"=") {
		return strconv.AppendQuote(buf, val)
	}
	return append(buf, val...)
}

func renderValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', 3, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}
