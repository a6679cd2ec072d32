// Package logging configures the global zerolog logger and the one-shot
// startup summary every binary emits.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelEnv selects the log level: debug, info, warn, error (default: info).
const LevelEnv = "GEMINI_LOG_LEVEL"

// FormatEnv selects the output format: "console" or "json". Lambda defaults
// to json so CloudWatch can index fields; everything else defaults to console.
const FormatEnv = "ORTHOVIEW_LOG_FORMAT"

// Init initializes the global logger with configuration from environment variables.
// Logs always go to stderr so stdout stays free for command output.
func Init() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(LevelEnv)))
	log.Logger = zerolog.New(newWriter(os.Stderr)).With().Timestamp().Logger()
}

// ParseLevel maps a GEMINI_LOG_LEVEL value to a zerolog level.
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

func newWriter(out io.Writer) io.Writer {
	if useJSON() {
		return out
	}
	return zerolog.ConsoleWriter{Out: out}
}

func useJSON() bool {
	switch strings.ToLower(os.Getenv(FormatEnv)) {
	case "json":
		return true
	case "console":
		return false
	}
	return InLambda()
}

// InLambda reports whether the process runs inside AWS Lambda.
func InLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}
