// Package ui renders runtime events for the terminal.
package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattgly/sage/internal/tasks"
	"github.com/mattgly/sage/internal/ui/highlight"
)

var (
	toolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	profileStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
)

// Handler renders loop notifications to the terminal. It implements the
// agent package's Output interface.
type Handler struct {
	colors      bool
	highlighter *highlight.Highlighter
}

// NewHandler creates a terminal output handler. Colors are disabled when
// stdout is not a terminal or NO_COLOR is set.
func NewHandler() *Handler {
	colors := true
	if info, _ := os.Stdout.Stat(); (info.Mode() & os.ModeCharDevice) == 0 {
		colors = false
	}
	if os.Getenv("NO_COLOR") != "" {
		colors = false
	}

	return &Handler{
		colors:      colors,
		highlighter: highlight.New(colors),
	}
}

// StreamText prints assistant text as it arrives.
func (h *Handler) StreamText(fragment string) {
	fmt.Print(fragment)
}

// ToolCallStarted prints a tool invocation line.
func (h *Handler) ToolCallStarted(name, description string) {
	line := toolStyle.Render("⚡ " + name)
	if description != "" {
		line += dimStyle.Render(" · " + description)
	}
	fmt.Println("\n" + line)
}

// ToolCallFinished prints a tool result, truncated and indented.
func (h *Handler) ToolCallFinished(name, result string, isError bool) {
	if isError {
		fmt.Println(errStyle.Render("✗ "+name) + dimStyle.Render(": "+firstLine(result)))
		return
	}

	const maxLen = 500
	display := result
	if len(display) > maxLen {
		display = display[:maxLen] + "..."
	}
	display = h.highlighter.CodeBlocks(display)

	fmt.Println(okStyle.Render("✓ " + name))
	if display == "" {
		return
	}
	lines := strings.Split(display, "\n")
	if len(lines) > 10 {
		lines = append(lines[:10], "... (truncated)")
	}
	for _, line := range lines {
		fmt.Println(dimStyle.Render("  │ ") + line)
	}
}

// TurnDone prints the end-of-turn separator.
func (h *Handler) TurnDone() {
	fmt.Println()
}

// Info prints an informational message.
func (h *Handler) Info(msg string) {
	fmt.Println(dimStyle.Render(msg))
}

// Warning prints a warning message.
func (h *Handler) Warning(msg string) {
	fmt.Println(warnStyle.Render("⚠ " + msg))
}

// Error prints an error message to stderr.
func (h *Handler) Error(msg string) {
	fmt.Fprintln(os.Stderr, errStyle.Render("Error: ")+msg)
}

// Prompt prints the interactive input prompt for the active profile.
func (h *Handler) Prompt(profile string) {
	fmt.Print(profileStyle.Render(profile) + promptStyle.Render(" ❯ "))
}

// ProfileList renders the profile catalog.
func (h *Handler) ProfileList(names []string, descriptions map[string]string, active string) {
	for _, name := range names {
		marker := "  "
		if name == active {
			marker = profileStyle.Render("* ")
		}
		fmt.Printf("%s%s  %s\n", marker, toolStyle.Render(padRight(name, 20)), dimStyle.Render(descriptions[name]))
	}
}

// TaskList renders background task snapshots.
func (h *Handler) TaskList(snaps []tasks.Snapshot) {
	if len(snaps) == 0 {
		fmt.Println(dimStyle.Render("no background tasks"))
		return
	}
	for _, snap := range snaps {
		state := string(snap.State)
		styled := dimStyle.Render(state)
		switch snap.State {
		case tasks.StateCompleted:
			styled = okStyle.Render(state)
		case tasks.StateFailed, tasks.StateTimedOut:
			styled = errStyle.Render(state)
		case tasks.StateRunning:
			styled = toolStyle.Render(state)
		}
		fmt.Printf("%s  %s  %s\n", snap.ID[:8], styled, dimStyle.Render(snap.Created.Format(time.TimeOnly)))
	}
}

// TaskDetail renders one task snapshot with its output.
func (h *Handler) TaskDetail(snap tasks.Snapshot) {
	fmt.Printf("%s  %s\n", snap.ID, string(snap.State))
	if snap.WaitExpired {
		fmt.Println(warnStyle.Render("⚠ still running; showing output so far"))
	}
	if snap.Err != nil {
		fmt.Println(errStyle.Render("error: ") + snap.Err.Error())
	}
	if snap.Output != "" {
		for _, line := range strings.Split(strings.TrimRight(snap.Output, "\n"), "\n") {
			fmt.Println(dimStyle.Render("  │ ") + line)
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
