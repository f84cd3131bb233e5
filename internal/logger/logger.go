// Package logger provides the structured logger shared by every component.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// New creates a logger writing to out. A nil out means stdout.
// In development the output is human readable; everywhere else it is JSON lines.
func New(serviceName, environment string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}

	if environment == "development" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(out).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	return &Logger{Logger: logger}
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// SetLevel parses level ("debug", "info", ...) and applies it.
// Unknown levels fall back to info.
func (l *Logger) SetLevel(level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	l.Logger = l.Logger.Level(lvl)
	return l
}

// WithRequestID returns a logger with the request ID attached
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With().Str("request_id", requestID).Logger(),
	}
}

// WithComponent returns a logger with the component name attached
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With().Str("component", component).Logger(),
	}
}

// WithSide returns a logger tagged with the card side being processed
func (l *Logger) WithSide(side string) *Logger {
	return &Logger{
		Logger: l.Logger.With().Str("side", side).Logger(),
	}
}
