// Package conversation defines the conversation data model shared across the
// runtime: turns, content blocks, and the append-only history invariants.
package conversation

import (
	"fmt"
	"strings"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// BlockKind discriminates ContentBlock variants.
type BlockKind string

const (
	KindText       BlockKind = "text"
	KindToolUse    BlockKind = "tool_use"
	KindToolResult BlockKind = "tool_result"
)

// ContentBlock is one typed fragment of a turn. Exactly one variant is
// populated, selected by Kind.
type ContentBlock struct {
	Kind BlockKind

	// Text (KindText)
	Text string

	// Tool call (KindToolUse). RawInput holds the argument payload exactly
	// as it arrived on the wire; Input is its decoded form.
	ID       string
	Name     string
	Input    map[string]any
	RawInput []byte

	// Tool result (KindToolResult). ID correlates to a prior ToolUse block.
	IsError bool
	Content string
}

// NewTextBlock returns a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Kind: KindText, Text: text}
}

// NewToolUseBlock returns a tool-use content block.
func NewToolUseBlock(id, name string, input map[string]any, raw []byte) ContentBlock {
	return ContentBlock{Kind: KindToolUse, ID: id, Name: name, Input: input, RawInput: raw}
}

// NewToolResultBlock returns a tool-result content block for the given call id.
func NewToolResultBlock(callID, content string, isError bool) ContentBlock {
	return ContentBlock{Kind: KindToolResult, ID: callID, Content: content, IsError: isError}
}

// Turn is one logical exchange unit. Turns are append-only: once a turn is
// stored in a history it is never mutated.
type Turn struct {
	Seq    int
	Role   Role
	Blocks []ContentBlock
}

// Text returns the concatenation of all text blocks in block order.
func (t Turn) Text() string {
	var sb strings.Builder
	for _, b := range t.Blocks {
		if b.Kind == KindText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ToolUses returns the tool-use blocks in their declared order.
func (t Turn) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range t.Blocks {
		if b.Kind == KindToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// History is an append-only sequence of turns with monotonically increasing
// sequence numbers. Append enforces the tool-result correlation invariant:
// a tool-result block must reference a tool-use id emitted in the same or an
// earlier turn.
type History struct {
	turns      []Turn
	nextSeq    int
	toolUseIDs map[string]bool
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{toolUseIDs: make(map[string]bool)}
}

// Append adds a turn with the next sequence number and returns it.
func (h *History) Append(role Role, blocks []ContentBlock) (Turn, error) {
	for _, b := range blocks {
		if b.Kind == KindToolResult && !h.toolUseIDs[b.ID] {
			return Turn{}, fmt.Errorf("tool result %q does not match any prior tool use", b.ID)
		}
	}
	for _, b := range blocks {
		if b.Kind == KindToolUse {
			h.toolUseIDs[b.ID] = true
		}
	}

	turn := Turn{Seq: h.nextSeq, Role: role, Blocks: blocks}
	h.nextSeq++
	h.turns = append(h.turns, turn)
	return turn, nil
}

// Turns returns a copy of the turn sequence.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Last returns the most recent turn, if any.
func (h *History) Last() (Turn, bool) {
	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

// Clear resets the history. Sequence numbers restart from zero.
func (h *History) Clear() {
	h.turns = nil
	h.nextSeq = 0
	h.toolUseIDs = make(map[string]bool)
}
