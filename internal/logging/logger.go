package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const service = "podread"

// New creates a structured logger. env "development" switches to console
// output; anything else writes JSON.
func New(level, env string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, env)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(out io.Writer, level, env string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(env, "development") {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(ParseLevel(level)).
			With().
			Timestamp().
			Caller().
			Str("service", service).
			Logger()
	}

	return zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// ParseLevel maps debug|info|warn|error to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
