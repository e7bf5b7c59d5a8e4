package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ReadFileTool reads file contents
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string {
	return "read_file"
}

func (t *ReadFileTool) Description() string {
	return "Read the contents of a file. Use this to examine code, configuration files, or any text file."
}

func (t *ReadFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The path to the file to read (relative or absolute).",
			},
			"start_line": map[string]any{
				"type":        "integer",
				"description": "Optional: Start reading from this line number (1-indexed).",
			},
			"end_line": map[string]any{
				"type":        "integer",
				"description": "Optional: Stop reading at this line number (inclusive).",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Permission() PermissionLevel {
	return PermissionRead
}

func (t *ReadFileTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	path, ok := input["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path is required")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", path)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	startLine, hasStart := input["start_line"].(float64)
	endLine, hasEnd := input["end_line"].(float64)

	if hasStart || hasEnd {
		lines := strings.Split(string(content), "\n")
		start := 0
		end := len(lines)

		if hasStart && int(startLine) > 0 {
			start = int(startLine) - 1
		}
		if hasEnd && int(endLine) > 0 && int(endLine) <= len(lines) {
			end = int(endLine)
		}

		if start >= end || start >= len(lines) {
			return "", fmt.Errorf("invalid line range")
		}

		var sb strings.Builder
		for i := start; i < end && i < len(lines); i++ {
			sb.WriteString(fmt.Sprintf("%4d | %s\n", i+1, lines[i]))
		}
		return sb.String(), nil
	}

	return string(content), nil
}

// WriteFileTool writes content to a file
type WriteFileTool struct{}

func (t *WriteFileTool) Name() string {
	return "write_file"
}

func (t *WriteFileTool) Description() string {
	return "Write content to a file. Creates the file if it doesn't exist, or overwrites if it does. Creates parent directories as needed."
}

func (t *WriteFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The path to the file to write (relative or absolute).",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The content to write to the file.",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Permission() PermissionLevel {
	return PermissionWrite
}

func (t *WriteFileTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	path, ok := input["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path is required")
	}

	content, ok := input["content"].(string)
	if !ok {
		return "", fmt.Errorf("content is required")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}

// EditFileTool performs targeted edits on a file
type EditFileTool struct{}

func (t *EditFileTool) Name() string {
	return "edit_file"
}

func (t *EditFileTool) Description() string {
	return "Edit a file by replacing specific text. Use this for targeted modifications instead of rewriting entire files."
}

func (t *EditFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The path to the file to edit.",
			},
			"old_text": map[string]any{
				"type":        "string",
				"description": "The exact text to find and replace.",
			},
			"new_text": map[string]any{
				"type":        "string",
				"description": "The text to replace it with.",
			},
		},
		"required": []string{"path", "old_text", "new_text"},
	}
}

func (t *EditFileTool) Permission() PermissionLevel {
	return PermissionWrite
}

func (t *EditFileTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	path, ok := input["path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("path is required")
	}

	oldText, ok := input["old_text"].(string)
	if !ok {
		return "", fmt.Errorf("old_text is required")
	}

	newText, ok := input["new_text"].(string)
	if !ok {
		return "", fmt.Errorf("new_text is required")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	text := string(content)
	count := strings.Count(text, oldText)
	if count == 0 {
		return "", fmt.Errorf("old_text not found in %s", path)
	}
	if count > 1 {
		return "", fmt.Errorf("old_text matches %d locations in %s, make it more specific", count, path)
	}

	updated := strings.Replace(text, oldText, newText, 1)
	if err := os.WriteFile(absPath, []byte(updated), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return fmt.Sprintf("Successfully edited %s", path), nil
}

// ListFilesTool lists files matching a glob pattern
type ListFilesTool struct{}

func (t *ListFilesTool) Name() string {
	return "list_files"
}

func (t *ListFilesTool) Description() string {
	return "List files in a directory, optionally filtered by a glob pattern like **/*.go."
}

func (t *ListFilesTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The directory to list. Defaults to the current directory.",
			},
			"pattern": map[string]any{
				"type":        "string",
				"description": "Optional glob pattern, e.g. **/*.go or src/**/*.ts.",
			},
		},
	}
}

func (t *ListFilesTool) Permission() PermissionLevel {
	return PermissionRead
}

func (t *ListFilesTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	root := "."
	if p, ok := input["path"].(string); ok && p != "" {
		root = p
	}

	pattern, _ := input["pattern"].(string)
	if pattern == "" {
		pattern = "*"
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	if len(matches) == 0 {
		return fmt.Sprintf("No files match %q in %s", pattern, root), nil
	}

	sort.Strings(matches)
	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(m)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
