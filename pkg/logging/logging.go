// Package logging wraps charmbracelet/log for the swap daemon: one
// process-wide default logger configured at startup, and per-component
// sub-loggers (lqs-cache, btc-events, rfc003-machine, ...) derived from
// it so every long-running goroutine logs under its own prefix.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Level aliases charmbracelet/log's level type.
type Level = log.Level

const (
	DebugLevel = log.DebugLevel
	InfoLevel  = log.InfoLevel
	WarnLevel  = log.WarnLevel
	ErrorLevel = log.ErrorLevel
	FatalLevel = log.FatalLevel
)

// Logger is a charmbracelet/log logger that remembers enough of its
// construction to derive component sub-loggers from itself.
type Logger struct {
	*log.Logger
	timeFormat string
	output     io.Writer
}

// Config configures a Logger. Zero values fall back to stderr, info
// level, and time-of-day timestamps.
type Config struct {
	Level      string
	TimeFormat string
	Output     io.Writer
}

// New builds a Logger from cfg.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = &Config{}
	}
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.TimeOnly
	}

	l := log.NewWithOptions(output, log.Options{
		ReportTimestamp: true,
		TimeFormat:      timeFormat,
	})
	l.SetLevel(parseLevel(cfg.Level))

	return &Logger{Logger: l, timeFormat: timeFormat, output: output}
}

func parseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// With returns a copy of l carrying the given key-value pairs on every
// record.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(keyvals...), timeFormat: l.timeFormat, output: l.output}
}

// Component derives a sub-logger prefixed with the component's name,
// inheriting l's level, output, and time format.
func (l *Logger) Component(name string) *Logger {
	out := l.output
	if out == nil {
		out = os.Stderr
	}
	sub := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      l.timeFormat,
		Prefix:          name,
	})
	sub.SetLevel(l.GetLevel())
	return &Logger{Logger: sub, timeFormat: l.timeFormat, output: out}
}

var defaultLogger = New(nil)

// SetDefault installs l as the process-wide default, normally once from
// main before anything else starts.
func SetDefault(l *Logger) {
	defaultLogger = l
}

// GetDefault returns the process-wide default logger.
func GetDefault() *Logger {
	return defaultLogger
}
