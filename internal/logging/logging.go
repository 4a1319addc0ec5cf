// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	// File, when set, receives JSON records through a size-rotated writer
	// instead of the text handler on Stderr.
	File      string
	MaxSizeMB int
	Stderr    io.Writer
}

// ParseLevel maps a level name to a slog.Level; unknown names mean warn.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// New builds the logger, installs it as the slog default and returns a
// closer for the rotating file, if any.
func New(opts Options) (*slog.Logger, io.Closer) {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var (
		h      slog.Handler
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: 3,
			MaxAge:     28,
		}
		h = slog.NewJSONHandler(lj, handlerOpts)
		closer = lj
	} else {
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		h = slog.NewTextHandler(w, handlerOpts)
	}

	log := slog.New(h)
	slog.SetDefault(log)
	return log, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
