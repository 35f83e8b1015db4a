// Package logging configures the process-wide zerolog logger.
//
// Logs always go to stderr so they never interfere with the MCP stdio
// transport. At info and above a human-readable console format is used;
// at debug level the raw JSON event stream is emitted instead, so
// structured fields survive for log collectors.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Setup returns a logger configured for the given level string
// (debug, info, warn, error; case-insensitive, default info).
func Setup(level string) zerolog.Logger {
	lvl := parseLevel(level)

	var logger zerolog.Logger
	if lvl <= zerolog.DebugLevel {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		console := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.DateTime,
		}
		logger = zerolog.New(console).With().Timestamp().Logger()
	}

	return logger.Level(lvl)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
