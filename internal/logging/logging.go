package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return Debug, nil
	case "", "info":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	}
	return Info, fmt.Errorf("unknown log level %q", s)
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case Debug:
		return zerolog.DebugLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type Config struct {
	Level  Level
	Format Format
	Output io.Writer // defaults to os.Stderr
}

// Logger is a printf-style facade over zerolog. A nil *Logger discards
// everything.
type Logger struct {
	zl zerolog.Logger
}

func NewLogger(c Config) *Logger {
	w := c.Output
	if w == nil {
		w = os.Stderr
	}

	var zl zerolog.Logger
	switch c.Format {
	case FormatJSON:
		zl = zerolog.New(w)
	default:
		zl = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly})
	}

	return &Logger{zl: zl.Level(c.Level.zerolog()).With().Timestamp().Logger()}
}

// NewNopLogger returns a logger that drops all messages.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying an additional string field.
func (l *Logger) With(key, value string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.zl.Error().Msgf(format, args...)
}
