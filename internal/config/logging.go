package config

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel parses a zerolog level name; empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(s))
}

// NewLogger builds the process logger. Console output is meant for
// development; json for log collectors.
func (c *Config) NewLogger(w io.Writer) zerolog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.LogFormat != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
