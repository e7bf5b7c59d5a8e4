package logging

import (
	"sync"
)

// Logger writes to the console (level-filtered) and the session log file
// (all levels). Every method is nil-safe so call sites never need to guard.
type Logger struct {
	config  Config
	console *ConsoleWriter
	file    *FileWriter

	// Current component prefix (e.g. "agent", "llm", "tasks")
	prefix string
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// Init initializes the global logger with the given configuration.
// This should be called early in main() before any logging occurs.
func Init(cfg Config) *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	globalLogger = New(cfg)
	return globalLogger
}

// New creates a new Logger instance.
func New(cfg Config) *Logger {
	consoleLevel := cfg.Level
	if cfg.Verbose {
		consoleLevel = LevelDebug
	}

	return &Logger{
		config:  cfg,
		console: NewConsoleWriter(consoleLevel),
		file:    NewFileWriter(cfg.LogDir),
	}
}

// Global returns the global logger instance.
// Returns nil if Init has not been called.
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// WithPrefix returns a new logger with the given component prefix.
// The prefix appears in log output as [prefix].
func (l *Logger) WithPrefix(prefix string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		config:  l.config,
		console: l.console,
		file:    l.file,
		prefix:  prefix,
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...Field) {
	if l == nil {
		return
	}
	l.log(LevelDebug, msg, fields...)
}

// Info logs an informational message.
func (l *Logger) Info(msg string, fields ...Field) {
	if l == nil {
		return
	}
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...Field) {
	if l == nil {
		return
	}
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...Field) {
	if l == nil {
		return
	}
	l.log(LevelError, msg, fields...)
}

// Event logs a named event. Events always reach the session log file; they
// appear on the console only at debug level.
func (l *Logger) Event(name string, fields ...Field) {
	if l == nil {
		return
	}
	l.console.Write(LevelDebug, "event", name, fields...)
	_ = l.file.Write(LevelInfo, "event", name, fields...)
}

func (l *Logger) log(level Level, msg string, fields ...Field) {
	l.console.Write(level, l.prefix, msg, fields...)
	_ = l.file.Write(level, l.prefix, msg, fields...)
}

// IsDebugEnabled returns true if debug console logging is enabled.
func (l *Logger) IsDebugEnabled() bool {
	if l == nil {
		return false
	}
	return l.console.Enabled(LevelDebug)
}

// SetLevel sets the console log level.
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.console.SetLevel(level)
}

// LogFilePath returns the current session log path, or empty if unused.
func (l *Logger) LogFilePath() string {
	if l == nil {
		return ""
	}
	return l.file.Path()
}

// Close closes the logger's file writer. Call on application exit.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	return l.file.Close()
}

// Package-level convenience functions using the global logger.

// Debug logs a debug message to the global logger.
func Debug(msg string, fields ...Field) {
	Global().Debug(msg, fields...)
}

// Info logs an informational message to the global logger.
func Info(msg string, fields ...Field) {
	Global().Info(msg, fields...)
}

// Warn logs a warning message to the global logger.
func Warn(msg string, fields ...Field) {
	Global().Warn(msg, fields...)
}

// LogError logs an error message to the global logger.
func LogError(msg string, fields ...Field) {
	Global().Error(msg, fields...)
}

// LogEvent logs a named event to the global logger.
func LogEvent(name string, fields ...Field) {
	Global().Event(name, fields...)
}

// Close closes the global logger.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLogger != nil {
		err := globalLogger.Close()
		globalLogger = nil
		return err
	}
	return nil
}
