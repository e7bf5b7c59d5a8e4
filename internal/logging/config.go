// Package logging provides the structured logging system for sage.
// It writes human-readable messages to the console (level-filtered) and a
// per-session log file (all levels), with typed key=value fields.
package logging

import (
	"os"
	"strings"
)

// Level represents log severity levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of a log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level. Unknown strings parse as info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// DefaultLogDir is the default directory for session logs (relative to cwd).
const DefaultLogDir = ".sage/logs"

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level for console output.
	Level Level

	// LogDir is the directory for session log files.
	LogDir string

	// Verbose enables debug-level console output.
	Verbose bool
}

// ConfigFromEnv creates a Config from environment variables.
//
//   - SAGE_DEBUG: set to "1" for debug-level console output
//   - SAGE_LOG_LEVEL: console log level (debug, info, warn, error)
//   - SAGE_LOG_DIR: override session log directory
func ConfigFromEnv() Config {
	cfg := Config{
		Level:  LevelInfo,
		LogDir: DefaultLogDir,
	}

	if os.Getenv("SAGE_DEBUG") == "1" {
		cfg.Verbose = true
		cfg.Level = LevelDebug
	}
	if level := os.Getenv("SAGE_LOG_LEVEL"); level != "" {
		cfg.Level = ParseLevel(level)
	}
	if dir := os.Getenv("SAGE_LOG_DIR"); dir != "" {
		cfg.LogDir = dir
	}

	return cfg
}
