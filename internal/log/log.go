// Package log configures structured logging for the formfuzz CLI.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs and returns the default slog logger for the given
// verbosity flags. Quiet wins over verbose:
//
//   - quiet:   WARN and above
//   - normal:  INFO and above
//   - verbose: DEBUG and above
func Setup(verbose, quiet bool) *slog.Logger {
	return SetupWriter(os.Stderr, verbose, quiet)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, verbose, quiet bool) *slog.Logger {
	var level slog.Level
	switch {
	case quiet:
		level = slog.LevelWarn
	case verbose:
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
