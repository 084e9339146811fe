// Package log is the lamp's process logger.
//
// Long-lived parts of the lamp get a child logger from Component, which adds
// a "component" attribute so the journal of a running lamp can be filtered
// per part. Set LAMP_LOG_FORMAT=json when logs go to a collector.
package log

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// FormatEnv selects the handler: "json", or text when unset.
const FormatEnv = "LAMP_LOG_FORMAT"

var (
	logger *slog.Logger
	once   sync.Once
)

// Init sets up the process logger once; later calls are ignored.
func Init(level string) {
	once.Do(func() {
		logger = slog.New(newHandler(os.Getenv(FormatEnv), &slog.HandlerOptions{
			Level: ParseLevel(level),
		}))
		slog.SetDefault(logger)
	})
}

func newHandler(format string, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

// ParseLevel accepts slog level names in any case, with optional offsets
// like "debug+2". Anything else is info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// L returns the process logger, initializing it at info level if needed.
func L() *slog.Logger {
	Init("info")
	return logger
}

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }

// With returns the process logger with extra attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Component tags l, or the process logger when l is nil, with the name of
// the lamp part that owns it.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = L()
	}
	return l.With("component", name)
}
