package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Package logger is a thin facade over slog with variadic key-value pairs:
//
//	logger.Info("attribution_batch", "processed", 42, "errors", 0)
//
// Init is optional; before it runs, calls go to a text handler on stderr at
// info level.

var log atomic.Pointer[slog.Logger]

func init() {
	log.Store(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// Init configures the process logger. level is one of debug, info, warn,
// error (case-insensitive, default info); json selects the JSON handler.
func Init(level string, json bool) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	log.Store(slog.New(h))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func Debug(msg string, kv ...any) { log.Load().Debug(msg, kv...) }
func Info(msg string, kv ...any)  { log.Load().Info(msg, kv...) }
func Warn(msg string, kv ...any)  { log.Load().Warn(msg, kv...) }
func Error(msg string, kv ...any) { log.Load().Error(msg, kv...) }

// Fatal logs at error level and exits.
func Fatal(msg string, kv ...any) {
	log.Load().Error(msg, kv...)
	os.Exit(1)
}
