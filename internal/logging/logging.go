// Package logging builds the slog logger used by the CLI: a coloured console
// handler plus a rotated log file in the project's metadata directory.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the log file below <metaDir>/logs.
const FileName = "skin-sync.log"

type Options struct {
	// Dir receives the log file; empty disables file logging.
	Dir        string
	Level      string
	Console    io.Writer
	Verbose    bool
	MaxSizeMB  int
	MaxBackups int
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
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

// New returns the logger and a closer for the log file. The console only
// shows warnings unless Verbose is set; regular output goes through the
// terminal printer instead.
func New(o Options) (*slog.Logger, io.Closer) {
	console := o.Console
	if console == nil {
		console = os.Stderr
	}
	consoleLevel := slog.LevelWarn
	if o.Verbose {
		consoleLevel = slog.LevelDebug
	}
	noColor := true
	if f, ok := console.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	handlers := []slog.Handler{tint.NewHandler(console, &tint.Options{
		Level:      consoleLevel,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	})}

	var closer io.Closer = nopCloser{}
	if o.Dir != "" {
		if err := os.MkdirAll(o.Dir, 0755); err == nil {
			file := &lumberjack.Logger{
				Filename:   filepath.Join(o.Dir, FileName),
				MaxSize:    o.MaxSizeMB,
				MaxBackups: o.MaxBackups,
				Compress:   true,
			}
			fileLevel := ParseLevel(o.Level)
			if o.Verbose {
				fileLevel = slog.LevelDebug
			}
			handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: fileLevel}))
			closer = file
		}
	}
	return slog.New(NewMultiHandler(handlers...)), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// MultiHandler forwards records to every handler that accepts their level.
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if e := handler.Handle(ctx, r.Clone()); e != nil {
				err = e
			}
		}
	}
	return err
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return NewMultiHandler(handlers...)
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return NewMultiHandler(handlers...)
}
