package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"example.com/h2client/v2/internal/config"
)

// LogFields carries structured context attached to a log entry.
type LogFields map[string]interface{}

// Logger is a leveled structured logger. Entries are JSON, one object per
// line, written to the configured target.
type Logger struct {
	zl     zerolog.Logger
	output io.WriteCloser // nil unless the target is a file we opened
}

// New creates a Logger from the logging configuration. File targets are
// opened in append mode; "stdout" and "stderr" use the process streams.
func New(cfg *config.LoggingConfig) (*Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging configuration cannot be nil")
	}

	var w io.Writer = os.Stderr
	var file io.WriteCloser
	switch cfg.Target {
	case "stderr", "":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.Target, err)
		}
		w = f
		file = f
	}

	zl := zerolog.New(w).Level(zerologLevel(cfg.LogLevel)).With().Timestamp().Logger()
	return &Logger{zl: zl, output: file}, nil
}

// NewWithWriter creates a Logger writing to w at the given level. Intended
// for tests that want to capture output.
func NewWithWriter(w io.Writer, level config.LogLevel) *Logger {
	return &Logger{zl: zerolog.New(w).Level(zerologLevel(level))}
}

// NewDiscard creates a Logger that drops everything.
func NewDiscard() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func zerologLevel(level config.LogLevel) zerolog.Level {
	switch level {
	case config.LogLevelDebug:
		return zerolog.DebugLevel
	case config.LogLevelInfo:
		return zerolog.InfoLevel
	case config.LogLevelWarning:
		return zerolog.WarnLevel
	case config.LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) emit(ev *zerolog.Event, msg string, fields []LogFields) {
	for _, fs := range fields {
		for k, v := range fs {
			ev = ev.Interface(k, v)
		}
	}
	ev.Msg(msg)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...LogFields) {
	l.emit(l.zl.Debug(), msg, fields)
}

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...LogFields) {
	l.emit(l.zl.Info(), msg, fields)
}

// Warn logs at warning level.
func (l *Logger) Warn(msg string, fields ...LogFields) {
	l.emit(l.zl.Warn(), msg, fields)
}

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...LogFields) {
	l.emit(l.zl.Error(), msg, fields)
}

// Close closes a file-backed log target. It is a no-op for the standard
// streams.
func (l *Logger) Close() error {
	if l.output != nil {
		return l.output.Close()
	}
	return nil
}
