// Package logger owns the process-wide structured logger. Handlers, clients
// and the orchestrator log through logger.L; the level is set once at startup
// from configuration.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

var level = new(slog.LevelVar)

// L writes JSON records to stdout at the configured level.
var L = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

// SetLevel sets the global log level. Accepted values are debug, info, warn
// and error; anything else falls back to info.
func SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}
