package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/mattgly/sage/internal/conversation"
	"github.com/mattgly/sage/internal/logging"
	"github.com/mattgly/sage/internal/permissions"
	"github.com/mattgly/sage/internal/tasks"
	"github.com/mattgly/sage/internal/tools"
)

// Executor runs the tool calls of one assistant turn. Results come back in
// the order the calls were declared, one result per call, no exceptions:
// denied and failed calls produce error results, never gaps.
type Executor struct {
	tools   *tools.Registry
	gate    *permissions.Gate
	manager *tasks.Manager
	log     *logging.Logger
}

// NewExecutor creates an executor.
func NewExecutor(registry *tools.Registry, gate *permissions.Gate, manager *tasks.Manager) *Executor {
	return &Executor{
		tools:   registry,
		gate:    gate,
		manager: manager,
		log:     logging.Global().WithPrefix("agent"),
	}
}

// ExecuteAll runs every tool-use block for the given profile and returns the
// matching tool-result blocks in declaration order.
func (e *Executor) ExecuteAll(ctx context.Context, profile string, calls []conversation.ContentBlock, output Output) []conversation.ContentBlock {
	results := make([]conversation.ContentBlock, 0, len(calls))
	for _, call := range calls {
		results = append(results, e.executeOne(ctx, profile, call, output))
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, profile string, call conversation.ContentBlock, output Output) conversation.ContentBlock {
	name := call.Name

	// The gate is consulted before anything else; a denied tool is never
	// looked up, validated, or invoked.
	if !e.gate.Allowed(profile, name) {
		e.log.Event(logging.EventToolDenied, logging.Profile(profile), logging.ToolName(name), logging.CallID(call.ID))
		msg := fmt.Sprintf("Permission denied: profile %q may not use tool %q", profile, name)
		output.ToolCallFinished(name, msg, true)
		return conversation.NewToolResultBlock(call.ID, msg, true)
	}

	tool, ok := e.tools.Get(name)
	if !ok {
		msg := fmt.Sprintf("Unknown tool: %s", name)
		output.ToolCallFinished(name, msg, true)
		return conversation.NewToolResultBlock(call.ID, msg, true)
	}

	if err := e.tools.Validate(name, call.Input); err != nil {
		e.log.Event(logging.EventToolError, logging.ToolName(name), logging.CallID(call.ID), logging.Error(err))
		msg := fmt.Sprintf("Invalid arguments: %s", err)
		output.ToolCallFinished(name, msg, true)
		return conversation.NewToolResultBlock(call.ID, msg, true)
	}

	if wantsBackground(call.Input) {
		return e.spawnBackground(tool, call, output)
	}

	description := describeCall(name, call.Input)
	output.ToolCallStarted(name, description)
	e.log.Event(logging.EventToolStart, logging.ToolName(name), logging.CallID(call.ID))

	start := time.Now()
	result, err := tool.Execute(ctx, call.Input)
	if err != nil {
		e.log.Event(logging.EventToolError, logging.ToolName(name), logging.CallID(call.ID),
			logging.Error(err), logging.DurationSince(start))
		output.ToolCallFinished(name, err.Error(), true)
		return conversation.NewToolResultBlock(call.ID, fmt.Sprintf("Error: %s", err), true)
	}

	e.log.Event(logging.EventToolComplete, logging.ToolName(name), logging.CallID(call.ID),
		logging.Count(len(result)), logging.DurationSince(start))
	output.ToolCallFinished(name, result, false)
	return conversation.NewToolResultBlock(call.ID, result, false)
}

// spawnBackground hands the call to the task manager and returns
// immediately with the task id. The task runs on its own context so it
// survives the loop call that spawned it.
func (e *Executor) spawnBackground(tool tools.Tool, call conversation.ContentBlock, output Output) conversation.ContentBlock {
	input := call.Input
	runner := func(ctx context.Context, emit func(string)) error {
		if streamer, ok := tool.(tools.Streamer); ok {
			return streamer.ExecuteStreaming(ctx, input, emit)
		}
		out, err := tool.Execute(ctx, input)
		if out != "" {
			emit(out)
		}
		return err
	}

	task := e.manager.Spawn(call.ID, runner)
	msg := fmt.Sprintf("Started background task %s. Poll it for output and completion.", task.ID())
	output.ToolCallFinished(call.Name, msg, false)
	return conversation.NewToolResultBlock(call.ID, msg, false)
}

// wantsBackground checks the conventional background flag in a call's
// arguments.
func wantsBackground(input map[string]any) bool {
	flag, ok := input["background"].(bool)
	return ok && flag
}

// describeCall creates a short human-readable description of a tool call.
func describeCall(name string, input map[string]any) string {
	switch name {
	case "read_file":
		if path, ok := input["path"].(string); ok {
			return fmt.Sprintf("Read %s", path)
		}
	case "write_file":
		if path, ok := input["path"].(string); ok {
			return fmt.Sprintf("Write to %s", path)
		}
	case "edit_file":
		if path, ok := input["path"].(string); ok {
			return fmt.Sprintf("Edit %s", path)
		}
	case "run_command":
		if cmd, ok := input["command"].(string); ok {
			if len(cmd) > 50 {
				cmd = cmd[:50] + "..."
			}
			return fmt.Sprintf("Run: %s", cmd)
		}
	case "grep":
		if pattern, ok := input["pattern"].(string); ok {
			return fmt.Sprintf("Grep: %s", pattern)
		}
	case "list_files":
		path := "."
		if p, ok := input["path"].(string); ok {
			path = p
		}
		return fmt.Sprintf("List files in %s", path)
	}
	return ""
}
