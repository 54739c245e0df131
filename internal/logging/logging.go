// Package logging builds the leveled logger shared by the CLI, the MCP
// server and the id engine. There is no package-level logger: callers create
// one from Options and pass it down.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logger type handed to every component.
type Logger = log.Logger

// Options configures New.
type Options struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is text, json or logfmt.
	Format string
	// File, when set, receives log output through a rotating writer instead
	// of Writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
	// Writer defaults to os.Stderr. Stdout is never used so that JSON
	// command output and the MCP stdio transport stay clean.
	Writer          io.Writer
	ReportTimestamp bool
	Prefix          string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Level:      "info",
		Format:     "text",
		MaxSizeMB:  10,
		MaxBackups: 3,
		Prefix:     "tm",
	}
}

// ParseLevel maps a level name to a log.Level. Unknown names are an error.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	}
	return log.InfoLevel, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}

func parseFormat(s string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	}
	return log.TextFormatter, fmt.Errorf("unknown log format %q (want text, json or logfmt)", s)
}

// New builds a logger from opts. The returned closer releases the log file,
// if any; it is safe to call when no file was opened.
func New(opts Options) (*Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	formatter, err := parseFormat(opts.Format)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		w, closer = lj, lj
	case opts.Writer != nil:
		w = opts.Writer
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: opts.ReportTimestamp || opts.File != "",
		Prefix:          opts.Prefix,
	})
	return logger, closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
