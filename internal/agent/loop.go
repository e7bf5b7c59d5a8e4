package agent

import (
	"context"
	"time"

	"github.com/mattgly/sage/internal/conversation"
	"github.com/mattgly/sage/internal/errors"
	"github.com/mattgly/sage/internal/llm"
	"github.com/mattgly/sage/internal/logging"
	"github.com/mattgly/sage/internal/stream"
	"github.com/mattgly/sage/internal/tools"
)

// Loop drives the model-tool cycle for one user input: stream a turn, run
// its tool calls, feed the results back, repeat until the model stops asking
// for tools or the cycle budget runs out.
type Loop struct {
	backend   llm.Backend
	tools     *tools.Registry
	executor  *Executor
	maxCycles int
	log       *logging.Logger
}

// NewLoop creates an execution loop.
func NewLoop(backend llm.Backend, registry *tools.Registry, executor *Executor, maxCycles int) *Loop {
	return &Loop{
		backend:   backend,
		tools:     registry,
		executor:  executor,
		maxCycles: maxCycles,
		log:       logging.Global().WithPrefix("agent"),
	}
}

// Run processes one user input to completion and returns the assistant's
// final text. The session history gains every turn produced along the way;
// on error the history keeps everything appended before the failure, so the
// conversation stays resumable.
func (l *Loop) Run(ctx context.Context, profile Profile, session *Session, input string, output Output) (string, error) {
	if output == nil {
		output = NopOutput{}
	}

	if _, err := session.History.Append(conversation.RoleUser,
		[]conversation.ContentBlock{conversation.NewTextBlock(input)}); err != nil {
		return "", err
	}

	l.log.Event(logging.EventLoopStart,
		logging.Profile(profile.Name), logging.SessionID(session.ID))
	start := time.Now()

	defs := l.toolDefinitions(profile)

	for cycle := 0; cycle < l.maxCycles; cycle++ {
		l.log.Event(logging.EventLoopCycle, logging.Cycle(cycle), logging.Seq(session.History.Len()))

		req := llm.Request{
			System:      profile.Prompt,
			Turns:       session.History.Turns(),
			Tools:       defs,
			Model:       profile.Model,
			MaxTokens:   profile.MaxTokens,
			Temperature: profile.Temperature,
		}

		asm := stream.NewAssembler(stream.SinkFunc(output.StreamText))
		result, err := asm.Consume(l.backend.Stream(ctx, req))
		if err != nil {
			l.log.Event(logging.EventLoopError, logging.Cycle(cycle), logging.Error(err))
			return "", err
		}

		turn, err := session.History.Append(conversation.RoleAssistant, result.Blocks)
		if err != nil {
			return "", err
		}
		if result.Usage != nil {
			l.log.Debug("turn finished",
				logging.StopReason(result.StopReason),
				logging.InputTokens(result.Usage.InputTokens),
				logging.OutputTokens(result.Usage.OutputTokens))
		}

		uses := turn.ToolUses()
		if len(uses) == 0 {
			output.TurnDone()
			l.log.Event(logging.EventLoopComplete,
				logging.Cycle(cycle), logging.DurationSince(start))
			return turn.Text(), nil
		}

		results := l.executor.ExecuteAll(ctx, profile.Name, uses, output)
		if _, err := session.History.Append(conversation.RoleTool, results); err != nil {
			return "", err
		}
	}

	l.log.Event(logging.EventLoopLimitHit, logging.Count(l.maxCycles))
	return "", errors.LoopLimitExceeded(l.maxCycles)
}

// toolDefinitions returns the registry's definitions filtered to the
// profile's allowlist. The model never sees tools the profile cannot use.
func (l *Loop) toolDefinitions(profile Profile) []llm.ToolDefinition {
	allowed := make(map[string]bool, len(profile.Tools))
	for _, name := range profile.Tools {
		allowed[name] = true
	}

	var defs []llm.ToolDefinition
	for _, def := range l.tools.Definitions() {
		if !allowed[def.Name] {
			continue
		}
		defs = append(defs, llm.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}
	return defs
}
