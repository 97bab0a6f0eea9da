// Package sysutil holds process bootstrap helpers used by cmd/server:
// global log level, the process logger with optional file rotation, and
// small string utilities for build metadata.
package sysutil

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tbourn/go-inquiry-backend/internal/config"
)

// SetLogLevel configures the global zerolog level. Unknown values fall back
// to info; "warning" is accepted as an alias of warn.
func SetLogLevel(lvl string) {
	level := zerolog.InfoLevel
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	case "fatal":
		level = zerolog.FatalLevel
	case "panic":
		level = zerolog.PanicLevel
	}
	zerolog.SetGlobalLevel(level)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the process logger writing to out, as JSON or as a
// console stream when cfg.Pretty. When cfg.File is set, JSON lines are also
// written to a size-rotated file. The returned Closer releases that file.
func NewLogger(out io.Writer, cfg config.LogConfig, service string) (zerolog.Logger, io.Closer) {
	var w io.Writer = out
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rot := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w = zerolog.MultiLevelWriter(w, rot)
		closer = rot
	}

	return zerolog.New(w).With().Timestamp().Str("service", service).Logger(), closer
}

// FirstNonEmpty returns the first value that is not blank, unmodified.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
