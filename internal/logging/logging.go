// Package logging builds the process logger shared by the commands.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a logger writing JSON to stderr, or a console writer when env is development or empty.
// An unknown level falls back to info. Nil hooks are skipped.
func New(env, level string, hooks ...zerolog.Hook) zerolog.Logger {
	var out io.Writer = os.Stderr
	if isDevelopment(env) {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return build(out, level, hooks...)
}

func build(out io.Writer, level string, hooks ...zerolog.Hook) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
	for _, h := range hooks {
		if h != nil {
			logger = logger.Hook(h)
		}
	}
	return logger
}

// ParseLevel maps LOG_LEVEL to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

func isDevelopment(env string) bool {
	switch strings.ToLower(env) {
	case "", "dev", "development", "local":
		return true
	}
	return false
}
