package errors

import "fmt"

// ProtocolViolation creates an error for a malformed or out-of-order stream
// event. lastIndex is the index of the last successfully processed event, so
// callers can retry from a clean turn boundary.
func ProtocolViolation(lastIndex int, cause error) *SageError {
	return &SageError{
		Category:  CategoryProtocol,
		Code:      "protocol_violation",
		Message:   fmt.Sprintf("stream protocol violated after event %d", lastIndex),
		Retryable: false,
		Cause:     cause,
	}
}

// BackendUnavailable creates an error for when the model backend is unreachable.
func BackendUnavailable(cause error) *SageError {
	return &SageError{
		Category:  CategoryLLM,
		Code:      "backend_unavailable",
		Message:   "model backend is unavailable",
		Retryable: true,
		Cause:     cause,
	}
}

// ToolNotFound creates an error for when a requested tool does not exist.
func ToolNotFound(name string) *SageError {
	return &SageError{
		Category:  CategoryTool,
		Code:      "tool_not_found",
		Message:   fmt.Sprintf("tool %q not found", name),
		Retryable: false,
	}
}

// ToolExecutionFailed creates an error for when a tool execution fails.
// Retryability depends on the underlying cause.
func ToolExecutionFailed(name string, cause error) *SageError {
	return &SageError{
		Category:  CategoryTool,
		Code:      "tool_execution_failed",
		Message:   fmt.Sprintf("tool %q execution failed", name),
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// ToolInputInvalid creates an error for when a tool's argument payload does
// not satisfy its declared schema.
func ToolInputInvalid(name string, cause error) *SageError {
	return &SageError{
		Category:  CategoryTool,
		Code:      "tool_input_invalid",
		Message:   fmt.Sprintf("arguments for tool %q failed validation", name),
		Retryable: false,
		Cause:     cause,
	}
}

// PermissionDenied creates an error for when a profile lacks access to a tool.
// The execution loop normally synthesizes a tool result instead of raising
// this; it exists for callers outside the loop (e.g. the command layer).
func PermissionDenied(profile, tool string) *SageError {
	return &SageError{
		Category:  CategoryPermission,
		Code:      "permission_denied",
		Message:   fmt.Sprintf("profile %q may not use tool %q", profile, tool),
		Retryable: false,
	}
}

// ProfileNotFound creates an error for an unknown agent profile name.
func ProfileNotFound(name string) *SageError {
	return &SageError{
		Category:  CategoryAgent,
		Code:      "profile_not_found",
		Message:   fmt.Sprintf("agent profile %q not found", name),
		Retryable: false,
	}
}

// LoopLimitExceeded creates an error for when the execution loop exceeds its
// configured maximum tool-call cycles for one user input.
func LoopLimitExceeded(cycles int) *SageError {
	return &SageError{
		Category:  CategoryAgent,
		Code:      "loop_limit_exceeded",
		Message:   fmt.Sprintf("execution loop exceeded %d cycles", cycles),
		Retryable: false,
	}
}

// TaskNotFound creates an error for an unknown background task id.
func TaskNotFound(id string) *SageError {
	return &SageError{
		Category:  CategoryTask,
		Code:      "task_not_found",
		Message:   fmt.Sprintf("background task %q not found", id),
		Retryable: false,
	}
}

// TaskNotTerminal creates an error for evicting a task that is still running.
func TaskNotTerminal(id string) *SageError {
	return &SageError{
		Category:  CategoryTask,
		Code:      "task_not_terminal",
		Message:   fmt.Sprintf("background task %q has not reached a terminal state", id),
		Retryable: false,
	}
}

// ConfigLoadFailed creates an error for when configuration loading fails.
func ConfigLoadFailed(path string, cause error) *SageError {
	return &SageError{
		Category:  CategoryConfig,
		Code:      "config_load_failed",
		Message:   fmt.Sprintf("failed to load config from %q", path),
		Retryable: false,
		Cause:     cause,
	}
}
