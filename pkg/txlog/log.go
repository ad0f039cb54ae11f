// Package txlog provides the structured logger shared by the tree engine.
// It is a thin wrapper over zerolog so call sites depend on a small local
// interface rather than the logging library directly.
package txlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the structured logger used throughout pkg/txn and pkg/engine.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger writing to w at the given level ("debug", "info",
// "warn", "error"). An unrecognized level falls back to "info".
func New(w io.Writer, level string) Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return Logger{z: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

// Nop returns a Logger that discards everything, for tests that don't care
// about log output.
func Nop() Logger {
	return Logger{z: zerolog.Nop()}
}

// Debugf logs a formatted message at debug level.
func (l Logger) Debugf(format string, args ...interface{}) {
	l.z.Debug().Msgf(format, args...)
}

// Warnf logs a formatted message at warn level.
func (l Logger) Warnf(format string, args ...interface{}) {
	l.z.Warn().Msgf(format, args...)
}

// Errorf logs a formatted message at error level, attaching err.
func (l Logger) Errorf(err error, format string, args ...interface{}) {
	l.z.Error().Err(err).Msgf(format, args...)
}

// CriticalStop logs a fatal-condition message at error level, tagging it so
// log aggregation can alert on it distinctly from ordinary errors.
func (l Logger) CriticalStop(err error, msg string) {
	l.z.Error().Err(err).Bool("critical_stop", true).Msg(msg)
}
