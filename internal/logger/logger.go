package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger with console output.
// level accepts the usual zerolog names ("debug", "info", "warn", "error");
// anything unrecognised falls back to info.
func Setup(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// Quiet drops the level to error only. Used by tests and machine-readable
// CLI output modes where progress chatter would pollute stdout.
func Quiet() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
}
