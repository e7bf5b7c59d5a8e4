// Package llm defines the abstract model-backend contract: the request shape
// sent to a backend and the ordered StreamEvent sequence it replies with.
// Vendor-specific framing stays inside the concrete clients.
package llm

import (
	"context"

	"github.com/mattgly/sage/internal/conversation"
)

// EventType identifies one unit of the incremental wire protocol.
type EventType string

const (
	EventTurnStart     EventType = "turn_start"
	EventBlockStart    EventType = "block_start"
	EventBlockDelta    EventType = "block_delta"
	EventBlockStop     EventType = "block_stop"
	EventTurnMetadata  EventType = "turn_metadata"
	EventTurnEnd       EventType = "turn_end"
	EventProtocolError EventType = "protocol_error"
)

// BlockKind identifies what a started block will contain.
type BlockKind string

const (
	BlockText    BlockKind = "text"
	BlockToolUse BlockKind = "tool_use"
)

// Usage reports token accounting for a turn.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// StreamEvent is one unit of the streamed response. Events are ephemeral;
// nothing retains them after the turn they describe is finalized.
type StreamEvent struct {
	Type  EventType
	Index int // block index for BlockStart/BlockDelta/BlockStop

	// BlockStart
	Kind     BlockKind
	ToolID   string
	ToolName string

	// BlockDelta: a raw fragment. For text blocks this is display text; for
	// tool-use blocks it is a slice of the argument JSON, possibly cut
	// mid-token.
	Fragment string

	// TurnMetadata
	Usage      *Usage
	StopReason string

	// ProtocolError
	Err error
}

// ToolDefinition describes a tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request carries everything a backend needs for one turn.
type Request struct {
	System      string
	Turns       []conversation.Turn
	Tools       []ToolDefinition
	Model       string
	MaxTokens   int
	Temperature float64
}

// Backend streams model responses as StreamEvent sequences. The returned
// channel is closed after EventTurnEnd or EventProtocolError.
type Backend interface {
	Stream(ctx context.Context, req Request) <-chan StreamEvent
	Close() error
}
