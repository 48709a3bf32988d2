// Package logging builds console loggers and writes per-run JSONL journals.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// ConsoleOptions holds configuration for console logging.
type ConsoleOptions struct {
	Level           log.Level
	Formatter       log.Formatter
	ReportTimestamp bool
	Prefix          string
}

// DefaultConsoleOptions returns default options for console logging.
func DefaultConsoleOptions() ConsoleOptions {
	return ConsoleOptions{
		Level:           log.InfoLevel,
		Formatter:       log.TextFormatter,
		ReportTimestamp: false,
		Prefix:          "taskmgr",
	}
}

// NewConsole returns a leveled logger writing to w. A nil w writes to stderr.
func NewConsole(w io.Writer, opts ConsoleOptions) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		Level:           opts.Level,
		Formatter:       opts.Formatter,
		ReportTimestamp: opts.ReportTimestamp,
		Prefix:          opts.Prefix,
	})
}

// NewConsoleFromConfig builds a console logger from string configuration values.
// This is useful when loading config from TOML or environment variables.
func NewConsoleFromConfig(w io.Writer, level, format string, timestamps bool) *log.Logger {
	opts := DefaultConsoleOptions()
	opts.Level = ParseLevel(level)
	opts.Formatter = ParseFormatter(format)
	opts.ReportTimestamp = timestamps
	return NewConsole(w, opts)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// ParseLevel parses a string log level. Unknown values map to info.
func ParseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormatter parses a formatter name. Unknown values map to text.
func ParseFormatter(format string) log.Formatter {
	switch format {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
