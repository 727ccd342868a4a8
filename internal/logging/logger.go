// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures New. Zero values pick stdout, info level and text output.
type Options struct {
	Env     string
	Service string
	Level   string
	Output  io.Writer
}

// NewLogger returns the process logger for the given env and service name.
// - env=prod: JSON handler without source locations
// - otherwise: text handler with source locations
// LOG_LEVEL controls the level (debug/info/warn/error), default info.
func NewLogger(env, service string) *slog.Logger {
	return New(Options{
		Env:     env,
		Service: service,
		Level:   os.Getenv("LOG_LEVEL"),
		Output:  os.Stdout,
	})
}

func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	level := parseLevel(opts.Level)

	var handler slog.Handler
	if isProd(opts.Env) {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:     level,
			AddSource: false,
		})
	} else {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
	}

	logger := slog.New(handler)
	if service := strings.TrimSpace(opts.Service); service != "" {
		logger = logger.With("service", service)
	}
	return logger
}

func isProd(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "prod")
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
