package logging

// Event names for structured logging. Events are written through the file
// writer with the "event" prefix so sessions can be reconstructed from logs.
const (
	// Session events
	EventSessionStart = "session.start"
	EventSessionEnd   = "session.end"

	// Profile / registry events
	EventProfileResolve = "profile.resolve"
	EventProfileSwitch  = "profile.switch"

	// Loop events
	EventLoopStart     = "loop.start"
	EventLoopCycle     = "loop.cycle"
	EventLoopComplete  = "loop.complete"
	EventLoopLimitHit  = "loop.limit"
	EventLoopError     = "loop.error"

	// Stream events
	EventStreamStart    = "stream.start"
	EventStreamFinalize = "stream.finalize"
	EventStreamError    = "stream.error"

	// Tool events
	EventToolStart    = "tool.start"
	EventToolComplete = "tool.complete"
	EventToolDenied   = "tool.denied"
	EventToolError    = "tool.error"

	// Background task events
	EventTaskSpawn    = "task.spawn"
	EventTaskComplete = "task.complete"
	EventTaskCancel   = "task.cancel"
	EventTaskTimeout  = "task.timeout"
	EventTaskRemove   = "task.remove"
)
