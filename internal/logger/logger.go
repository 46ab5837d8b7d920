// Package logger provides structured logging setup for taskgate.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logging settings.
type Config struct {
	Level   string `json:"level" yaml:"level"`
	Service string `json:"service" yaml:"service"`
	Format  string `json:"format" yaml:"format"` // json | text
	Async   bool   `json:"async" yaml:"async"`
}

// New creates a *slog.Logger writing to stdout. Every record carries a
// "service" attribute. The returned Closer flushes the async handler (a
// no-op in synchronous mode).
func New(cfg Config) (*slog.Logger, Closer) {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, cfg Config) (*slog.Logger, Closer) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	var closer Closer = nopCloser{}
	if cfg.Async {
		async := NewAsyncHandler(handler, 4096, 1)
		handler, closer = async, async
	}
	service := cfg.Service
	if service == "" {
		service = "taskgate"
	}
	return slog.New(handler).With("service", service), closer
}

// ParseLevel maps a level name to slog.Level; unknown names fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OrDefault returns l, or slog.Default() when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
