package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const grepMaxMatches = 200

// GrepTool searches file contents with a regular expression
type GrepTool struct{}

func (t *GrepTool) Name() string {
	return "grep"
}

func (t *GrepTool) Description() string {
	return "Search file contents with a regular expression. Returns matching lines with file and line number."
}

func (t *GrepTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "The regular expression to search for.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "The directory to search. Defaults to the current directory.",
			},
			"include": map[string]any{
				"type":        "string",
				"description": "Optional glob to restrict which files are searched, e.g. **/*.go.",
			},
		},
		"required": []string{"pattern"},
	}
}

func (t *GrepTool) Permission() PermissionLevel {
	return PermissionRead
}

func (t *GrepTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	pattern, ok := input["pattern"].(string)
	if !ok || pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	root := "."
	if p, ok := input["path"].(string); ok && p != "" {
		root = p
	}
	include, _ := input["include"].(string)

	var sb strings.Builder
	matches := 0

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if include != "" {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			if ok, _ := doublestar.Match(include, filepath.ToSlash(rel)); !ok {
				return nil
			}
		}

		found, err := grepFile(re, path, &sb, &matches)
		if err != nil {
			return nil
		}
		if found && matches >= grepMaxMatches {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && err != fs.SkipAll {
		return "", err
	}

	if matches == 0 {
		return fmt.Sprintf("No matches for %q", pattern), nil
	}
	if matches >= grepMaxMatches {
		sb.WriteString(fmt.Sprintf("... truncated at %d matches\n", grepMaxMatches))
	}
	return sb.String(), nil
}

func grepFile(re *regexp.Regexp, path string, sb *strings.Builder, matches *int) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	found := false
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if re.MatchString(line) {
			sb.WriteString(fmt.Sprintf("%s:%d: %s\n", path, lineNum, line))
			found = true
			*matches++
			if *matches >= grepMaxMatches {
				break
			}
		}
	}
	return found, nil
}
