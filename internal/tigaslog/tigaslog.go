// Package tigaslog installs the process-wide structured logger.
package tigaslog

import (
	"log/slog"
	"os"
)

// Init configures the default slog logger with a text handler writing to
// stderr. Debug-level logging is enabled when the DEBUG environment
// variable is set to a non-empty value other than "0" or "false".
func Init() *slog.Logger {
	level := slog.LevelInfo
	if debugEnabled() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func debugEnabled() bool {
	v := os.Getenv("DEBUG")
	return v != "" && v != "0" && v != "false"
}
