package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultCommandTimeout = 2 * time.Minute
	maxCommandTimeout     = 10 * time.Minute
)

// blockedCommands are substrings that are never allowed to run.
var blockedCommands = []string{
	"rm -rf /",
	"rm -rf ~",
	"mkfs",
	"dd if=",
	":(){ :|:& };:",
	"> /dev/sda",
}

// BashTool executes shell commands
type BashTool struct{}

func (t *BashTool) Name() string {
	return "run_command"
}

func (t *BashTool) Description() string {
	return "Execute a shell command and return its combined output. Set background to true for long-running commands; they run as a background task whose output can be polled."
}

func (t *BashTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute.",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Optional timeout in seconds. Defaults to 120, capped at 600.",
			},
			"background": map[string]any{
				"type":        "boolean",
				"description": "Run as a background task instead of waiting for completion.",
			},
		},
		"required": []string{"command"},
	}
}

func (t *BashTool) Permission() PermissionLevel {
	return PermissionExecute
}

func (t *BashTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	var sb strings.Builder
	err := t.ExecuteStreaming(ctx, input, func(line string) {
		sb.WriteString(line)
	})
	if err != nil {
		if sb.Len() > 0 {
			return "", fmt.Errorf("%w\noutput:\n%s", err, sb.String())
		}
		return "", err
	}
	return sb.String(), nil
}

// ExecuteStreaming runs the command and emits output line by line as it is
// produced. This is the path background tasks use.
func (t *BashTool) ExecuteStreaming(ctx context.Context, input map[string]any, emit func(string)) error {
	command, ok := input["command"].(string)
	if !ok || command == "" {
		return fmt.Errorf("command is required")
	}

	for _, blocked := range blockedCommands {
		if strings.Contains(command, blocked) {
			return fmt.Errorf("command blocked: matches %q", blocked)
		}
	}

	timeout := defaultCommandTimeout
	if secs, ok := input["timeout"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
		if timeout > maxCommandTimeout {
			timeout = maxCommandTimeout
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	pr, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to open pipe: %w", err)
	}
	defer pr.Close()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return fmt.Errorf("failed to start command: %w", err)
	}
	pw.Close()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		emit(scanner.Text() + "\n")
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("command timed out after %s", timeout)
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}
