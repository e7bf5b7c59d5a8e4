package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ConsoleWriter writes human-readable log messages to stderr.
// It respects log level filtering.
type ConsoleWriter struct {
	mu       sync.Mutex
	output   io.Writer
	minLevel Level
}

// NewConsoleWriter creates a new console writer with the given minimum level.
func NewConsoleWriter(minLevel Level) *ConsoleWriter {
	return &ConsoleWriter{
		output:   os.Stderr,
		minLevel: minLevel,
	}
}

// SetOutput sets the output destination (mainly for testing).
func (c *ConsoleWriter) SetOutput(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.output = w
}

// SetLevel sets the minimum log level.
func (c *ConsoleWriter) SetLevel(level Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.minLevel = level
}

// Enabled returns true if the given level would be logged.
func (c *ConsoleWriter) Enabled(level Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return level >= c.minLevel
}

// Write writes a log message if the level meets the minimum.
// Format: "15:04:05 LEVEL [prefix] message key=value key=value"
func (c *ConsoleWriter) Write(level Level, prefix, msg string, fields ...Field) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if level < c.minLevel {
		return
	}
	_, _ = c.output.Write([]byte(formatLine(level, prefix, msg, fields)))
}

// formatLine builds one log line shared by the console and file writers.
func formatLine(level Level, prefix, msg string, fields []Field) string {
	var sb strings.Builder
	sb.WriteString(time.Now().Format("15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(fmt.Sprintf("%-5s", level.String()))
	sb.WriteString(" ")

	if prefix != "" {
		sb.WriteString("[")
		sb.WriteString(prefix)
		sb.WriteString("] ")
	}

	sb.WriteString(msg)

	for _, f := range fields {
		sb.WriteString(" ")
		sb.WriteString(f.Key)
		sb.WriteString("=")
		sb.WriteString(formatValue(f.Value))
	}

	sb.WriteString("\n")
	return sb.String()
}

// formatValue formats a value for log output.
func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		if strings.ContainsAny(val, " \t\n") {
			return fmt.Sprintf("%q", val)
		}
		return val
	case error:
		if val == nil {
			return "<nil>"
		}
		return fmt.Sprintf("%q", val.Error())
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%v", val)
	}
}
