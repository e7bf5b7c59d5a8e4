package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := BackendUnavailable(cause)

	if !strings.Contains(err.Error(), "backend_unavailable") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("cause missing from %q", err.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root")
	err := ToolExecutionFailed("grep", cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is failed to find cause")
	}

	var sage *SageError
	if !stderrors.As(err, &sage) {
		t.Fatal("errors.As failed")
	}
	if sage.Code != "tool_execution_failed" {
		t.Errorf("code = %q", sage.Code)
	}
}

func TestIsMatchesCategoryAndCode(t *testing.T) {
	err := ToolNotFound("x")
	target := &SageError{Category: CategoryTool, Code: "tool_not_found"}
	if !stderrors.Is(err, target) {
		t.Error("Is should match on category and code")
	}

	other := &SageError{Category: CategoryTool, Code: "tool_execution_failed"}
	if stderrors.Is(err, other) {
		t.Error("Is matched a different code")
	}
}

func TestGetCategory(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{ProtocolViolation(3, nil), CategoryProtocol},
		{PermissionDenied("explore", "write_file"), CategoryPermission},
		{TaskNotFound("t1"), CategoryTask},
		{LoopLimitExceeded(20), CategoryAgent},
		{fmt.Errorf("plain"), Category("")},
	}
	for _, tt := range tests {
		if got := GetCategory(tt.err); got != tt.want {
			t.Errorf("GetCategory(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(BackendUnavailable(nil)) {
		t.Error("backend unavailable should be retryable")
	}
	if IsRetryable(PermissionDenied("a", "b")) {
		t.Error("permission denied should not be retryable")
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("plain errors should not be retryable")
	}
}
