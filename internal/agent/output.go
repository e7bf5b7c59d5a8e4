package agent

// Output receives user-facing notifications from the execution loop. The
// command layer provides a styled implementation; tests use recorders.
type Output interface {
	// StreamText receives assistant text fragments as they arrive.
	StreamText(fragment string)
	// ToolCallStarted fires before a tool executes. description is a short
	// human-readable summary of the call.
	ToolCallStarted(name, description string)
	// ToolCallFinished fires after a tool settles, successfully or not.
	ToolCallFinished(name, result string, isError bool)
	// TurnDone fires when the loop returns control to the user.
	TurnDone()

	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// NopOutput discards all notifications.
type NopOutput struct{}

func (NopOutput) StreamText(string)                     {}
func (NopOutput) ToolCallStarted(string, string)        {}
func (NopOutput) ToolCallFinished(string, string, bool) {}
func (NopOutput) TurnDone()                             {}
func (NopOutput) Info(string)                           {}
func (NopOutput) Warning(string)                        {}
func (NopOutput) Error(string)                          {}
