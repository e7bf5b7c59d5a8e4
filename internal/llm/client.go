package llm

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mattgly/sage/internal/config"
	"github.com/mattgly/sage/internal/conversation"
	"github.com/mattgly/sage/internal/logging"
)

// AnthropicClient implements Backend over the Anthropic SDK. It translates
// SDK stream events into the abstract StreamEvent contract and forwards
// tool-argument fragments verbatim: concatenation and parsing belong to the
// stream assembler, never to the transport.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a backend client from config.
func NewAnthropicClient(cfg *config.Config) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.RateLimit.MaxRetries),
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &client}
}

// Stream sends the request and translates the SDK's SSE stream into
// StreamEvents. The channel is closed after the terminal event.
func (c *AnthropicClient) Stream(ctx context.Context, req Request) <-chan StreamEvent {
	ch := make(chan StreamEvent, 100)

	go func() {
		defer close(ch)

		params := buildParams(req)
		stream := c.client.Messages.NewStreaming(ctx, params)

		tr := newEventTranslator()
		for stream.Next() {
			events, done := tr.translate(stream.Current())
			for _, ev := range events {
				ch <- ev
			}
			if done {
				return
			}
		}

		if err := stream.Err(); err != nil {
			logging.Global().WithPrefix("llm").Error("stream failed", logging.Error(err))
			ch <- StreamEvent{Type: EventProtocolError, Err: err}
		}
	}()

	return ch
}

// eventTranslator converts SDK stream events to the abstract contract. Block
// kinds outside the contract (thinking and friends) are skipped whole: their
// start is remembered so their later delta and stop events are dropped too.
type eventTranslator struct {
	inputTokens int64
	skipped     map[int]bool
}

func newEventTranslator() *eventTranslator {
	return &eventTranslator{skipped: make(map[int]bool)}
}

// translate returns the StreamEvents for one SDK event. done reports the end
// of the message.
func (t *eventTranslator) translate(event anthropic.MessageStreamEventUnion) ([]StreamEvent, bool) {
	switch e := event.AsAny().(type) {
	case anthropic.MessageStartEvent:
		t.inputTokens = e.Message.Usage.InputTokens
		return []StreamEvent{{Type: EventTurnStart}}, false

	case anthropic.ContentBlockStartEvent:
		ev := StreamEvent{Type: EventBlockStart, Index: int(e.Index)}
		switch block := e.ContentBlock.AsAny().(type) {
		case anthropic.TextBlock:
			ev.Kind = BlockText
		case anthropic.ToolUseBlock:
			ev.Kind = BlockToolUse
			ev.ToolID = block.ID
			ev.ToolName = block.Name
		default:
			t.skipped[int(e.Index)] = true
			return nil, false
		}
		return []StreamEvent{ev}, false

	case anthropic.ContentBlockDeltaEvent:
		if t.skipped[int(e.Index)] {
			return nil, false
		}
		switch delta := e.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			return []StreamEvent{{Type: EventBlockDelta, Index: int(e.Index), Fragment: delta.Text}}, false
		case anthropic.InputJSONDelta:
			return []StreamEvent{{Type: EventBlockDelta, Index: int(e.Index), Fragment: delta.PartialJSON}}, false
		}
		return nil, false

	case anthropic.ContentBlockStopEvent:
		if t.skipped[int(e.Index)] {
			return nil, false
		}
		return []StreamEvent{{Type: EventBlockStop, Index: int(e.Index)}}, false

	case anthropic.MessageDeltaEvent:
		return []StreamEvent{{
			Type:       EventTurnMetadata,
			StopReason: string(e.Delta.StopReason),
			Usage: &Usage{
				InputTokens:  t.inputTokens,
				OutputTokens: e.Usage.OutputTokens,
			},
		}}, false

	case anthropic.MessageStopEvent:
		return []StreamEvent{{Type: EventTurnEnd}}, true
	}
	return nil, false
}

// Close releases client resources. The SDK client holds none.
func (c *AnthropicClient) Close() error {
	return nil
}

// buildParams converts an abstract request to SDK message params.
func buildParams(req Request) anthropic.MessageNewParams {
	var apiMessages []anthropic.MessageParam
	for _, turn := range req.Turns {
		switch turn.Role {
		case conversation.RoleUser:
			apiMessages = append(apiMessages, anthropic.NewUserMessage(turnBlocks(turn)...))
		case conversation.RoleAssistant:
			apiMessages = append(apiMessages, anthropic.NewAssistantMessage(turnBlocks(turn)...))
		case conversation.RoleTool:
			// Tool results travel as user messages on the Anthropic wire.
			apiMessages = append(apiMessages, anthropic.NewUserMessage(turnBlocks(turn)...))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  apiMessages,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: req.System,
			},
		}
	}

	if len(req.Tools) > 0 {
		var apiTools []anthropic.ToolUnionParam
		for _, tool := range req.Tools {
			schema := buildInputSchema(tool.InputSchema)
			toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name)
			toolParam.OfTool.Description = anthropic.String(tool.Description)
			apiTools = append(apiTools, toolParam)
		}
		params.Tools = apiTools
	}

	return params
}

// turnBlocks converts a turn's content blocks to SDK block params.
func turnBlocks(turn conversation.Turn) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, b := range turn.Blocks {
		switch b.Kind {
		case conversation.KindText:
			if b.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			}
		case conversation.KindToolUse:
			var input any = b.Input
			if len(b.RawInput) > 0 {
				input = json.RawMessage(b.RawInput)
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, input, b.Name))
		case conversation.KindToolResult:
			blocks = append(blocks, anthropic.NewToolResultBlock(b.ID, b.Content, b.IsError))
		}
	}
	return blocks
}

// buildInputSchema converts a tool's schema map to the SDK's ToolInputSchemaParam
func buildInputSchema(schema map[string]any) anthropic.ToolInputSchemaParam {
	result := anthropic.ToolInputSchemaParam{}

	if props, ok := schema["properties"].(map[string]any); ok {
		result.Properties = props
	}

	if req, ok := schema["required"]; ok {
		result.ExtraFields = map[string]interface{}{
			"required": req,
		}
	}

	return result
}
