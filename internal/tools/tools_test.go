package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattgly/sage/internal/errors"
)

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry()

	defs := r.Definitions()
	want := []string{"read_file", "write_file", "edit_file", "list_files", "grep", "run_command"}
	if len(defs) != len(want) {
		t.Fatalf("got %d definitions, want %d", len(defs), len(want))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("definition %d = %q, want %q", i, defs[i].Name, name)
		}
	}
}

func TestRegistryValidate(t *testing.T) {
	r := NewRegistry()

	t.Run("valid input", func(t *testing.T) {
		if err := r.Validate("read_file", map[string]any{"path": "a.txt"}); err != nil {
			t.Errorf("valid input rejected: %v", err)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		err := r.Validate("read_file", map[string]any{"start_line": 3})
		if err == nil {
			t.Fatal("expected validation error")
		}
		if errors.GetCategory(err) != errors.CategoryTool {
			t.Errorf("category = %v, want tool", errors.GetCategory(err))
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		if err := r.Validate("read_file", map[string]any{"path": 42}); err == nil {
			t.Fatal("expected validation error for non-string path")
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		if err := r.Validate("no_such_tool", map[string]any{}); err == nil {
			t.Fatal("expected error for unknown tool")
		}
	})
}

func TestReadWriteEdit(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")

	write := &WriteFileTool{}
	if _, err := write.Execute(ctx, map[string]any{"path": path, "content": "alpha\nbeta\ngamma\n"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	read := &ReadFileTool{}
	out, err := read.Execute(ctx, map[string]any{"path": path})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out != "alpha\nbeta\ngamma\n" {
		t.Errorf("read = %q", out)
	}

	out, err = read.Execute(ctx, map[string]any{"path": path, "start_line": float64(2), "end_line": float64(2)})
	if err != nil {
		t.Fatalf("ranged read: %v", err)
	}
	if !strings.Contains(out, "beta") || strings.Contains(out, "alpha") {
		t.Errorf("ranged read = %q", out)
	}

	edit := &EditFileTool{}
	if _, err := edit.Execute(ctx, map[string]any{"path": path, "old_text": "beta", "new_text": "delta"}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	content, _ := os.ReadFile(path)
	if !strings.Contains(string(content), "delta") {
		t.Errorf("edit did not apply: %q", content)
	}

	if _, err := edit.Execute(ctx, map[string]any{"path": path, "old_text": "missing", "new_text": "x"}); err == nil {
		t.Error("expected error for absent old_text")
	}
}

func TestListFilesGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"main.go", "util.go", "readme.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	list := &ListFilesTool{}
	out, err := list.Execute(context.Background(), map[string]any{"path": dir, "pattern": "*.go"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "main.go") || !strings.Contains(out, "util.go") {
		t.Errorf("missing go files: %q", out)
	}
	if strings.Contains(out, "readme.md") {
		t.Errorf("glob leaked non-matching file: %q", out)
	}
}

func TestGrep(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world\nnothing here\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.md"), []byte("hello again\n"), 0644); err != nil {
		t.Fatal(err)
	}

	grep := &GrepTool{}
	out, err := grep.Execute(context.Background(), map[string]any{"pattern": "hello", "path": dir})
	if err != nil {
		t.Fatalf("grep: %v", err)
	}
	if !strings.Contains(out, "a.txt:1") || !strings.Contains(out, "b.md:1") {
		t.Errorf("grep output = %q", out)
	}

	out, err = grep.Execute(context.Background(), map[string]any{"pattern": "hello", "path": dir, "include": "*.md"})
	if err != nil {
		t.Fatalf("grep include: %v", err)
	}
	if strings.Contains(out, "a.txt") {
		t.Errorf("include filter did not apply: %q", out)
	}
}

func TestBashTool(t *testing.T) {
	bash := &BashTool{}
	ctx := context.Background()

	t.Run("captures output", func(t *testing.T) {
		out, err := bash.Execute(ctx, map[string]any{"command": "echo hi"})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if strings.TrimSpace(out) != "hi" {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("blocked command", func(t *testing.T) {
		if _, err := bash.Execute(ctx, map[string]any{"command": "rm -rf / --no-preserve-root"}); err == nil {
			t.Error("expected blocked command to fail")
		}
	})

	t.Run("streams lines", func(t *testing.T) {
		var lines []string
		err := bash.ExecuteStreaming(ctx, map[string]any{"command": "printf 'one\\ntwo\\n'"}, func(l string) {
			lines = append(lines, l)
		})
		if err != nil {
			t.Fatalf("streaming: %v", err)
		}
		if len(lines) != 2 {
			t.Errorf("lines = %v", lines)
		}
	})

	t.Run("failing command", func(t *testing.T) {
		if _, err := bash.Execute(ctx, map[string]any{"command": "exit 3"}); err == nil {
			t.Error("expected non-zero exit to fail")
		}
	})
}
