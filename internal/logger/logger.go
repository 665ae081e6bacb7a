// Package logger configures the process-wide slog logger with a tint
// handler that adapts to whether stderr is a terminal.
package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Setup installs the default slog logger. Colors and short timestamps are
// used on a terminal; plain RFC3339 output otherwise (e.g. piped to a file).
func Setup(level slog.Level) *slog.Logger {
	isTerminal := isatty.IsTerminal(os.Stderr.Fd())

	timeFormat := time.Stamp
	if !isTerminal {
		timeFormat = time.RFC3339
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		NoColor:    !isTerminal,
		TimeFormat: timeFormat,
	})

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// LevelFromFlags maps the CLI verbosity flags onto a slog level.
func LevelFromFlags(debug, quiet bool) slog.Level {
	switch {
	case debug:
		return slog.LevelDebug
	case quiet:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
