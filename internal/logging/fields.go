package logging

import (
	"time"
)

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Common field constructors for frequently used fields.

// Profile creates an agent profile name field.
func Profile(name string) Field {
	return F("profile", name)
}

// SessionID creates a session ID field.
func SessionID(id string) Field {
	return F("session_id", id)
}

// ToolName creates a tool name field.
func ToolName(name string) Field {
	return F("tool", name)
}

// CallID creates a tool call ID field.
func CallID(id string) Field {
	return F("call_id", id)
}

// TaskID creates a background task ID field.
func TaskID(id string) Field {
	return F("task_id", id)
}

// State creates a task state field.
func State(s string) Field {
	return F("state", s)
}

// Seq creates a turn sequence number field.
func Seq(n int) Field {
	return F("seq", n)
}

// EventIndex creates a stream event index field.
func EventIndex(n int) Field {
	return F("event_index", n)
}

// BlockIndex creates a content block index field.
func BlockIndex(n int) Field {
	return F("block_index", n)
}

// Cycle creates a loop cycle field.
func Cycle(n int) Field {
	return F("cycle", n)
}

// Model creates a model name field.
func Model(name string) Field {
	return F("model", name)
}

// StopReason creates a stop reason field.
func StopReason(r string) Field {
	return F("stop_reason", r)
}

// InputTokens creates an input token count field.
func InputTokens(count int64) Field {
	return F("input_tokens", count)
}

// OutputTokens creates an output token count field.
func OutputTokens(count int64) Field {
	return F("output_tokens", count)
}

// Duration creates a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return F("duration_ms", d.Milliseconds())
}

// DurationSince creates a duration field from a start time.
func DurationSince(start time.Time) Field {
	return Duration(time.Since(start))
}

// Error creates an error field.
func Error(err error) Field {
	if err == nil {
		return F("error", nil)
	}
	return F("error", err.Error())
}

// Count creates a count field.
func Count(n int) Field {
	return F("count", n)
}

// Reason creates a reason field.
func Reason(r string) Field {
	return F("reason", r)
}
