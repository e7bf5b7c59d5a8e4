// Package stream assembles incremental model events into finalized turns.
//
// Tool-use argument fragments are buffered raw per block index and parsed
// exactly once when the block stops. Parsing per-delta would break whenever
// the wire splits the payload mid-token, so no partial fragment is ever
// inspected as JSON.
package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mattgly/sage/internal/conversation"
	"github.com/mattgly/sage/internal/errors"
	"github.com/mattgly/sage/internal/llm"
	"github.com/mattgly/sage/internal/logging"
)

// TextSink receives text fragments as they arrive, before the turn is
// finalized. Used for live display.
type TextSink interface {
	StreamText(fragment string)
}

// SinkFunc adapts a function to the TextSink interface.
type SinkFunc func(fragment string)

// StreamText implements TextSink.
func (f SinkFunc) StreamText(fragment string) { f(fragment) }

type state int

const (
	stateAwaitingTurn state = iota
	stateInTurn
	stateFinalized
	stateErrored
)

// blockBuf accumulates one in-flight content block. input is populated for
// tool-use blocks when the block stops.
type blockBuf struct {
	kind     llm.BlockKind
	toolID   string
	toolName string
	text     strings.Builder
	raw      bytes.Buffer
	input    map[string]any
	closed   bool
}

// Result is a fully assembled assistant turn.
type Result struct {
	Blocks     []conversation.ContentBlock
	StopReason string
	Usage      *llm.Usage
}

// Assembler is a single-turn state machine over the stream event protocol.
// It is not safe for concurrent use and cannot be reused across turns.
type Assembler struct {
	state     state
	blocks    map[int]*blockBuf
	order     []int
	sink      TextSink
	usage     *llm.Usage
	stop      string
	processed int // count of successfully applied events
	log       *logging.Logger
}

// NewAssembler creates an assembler. sink may be nil when no live text
// display is wanted.
func NewAssembler(sink TextSink) *Assembler {
	return &Assembler{
		state:  stateAwaitingTurn,
		blocks: make(map[int]*blockBuf),
		sink:   sink,
		log:    logging.Global().WithPrefix("stream"),
	}
}

// Consume drains a backend event channel into the assembler and returns the
// finalized turn. On a protocol violation the partial turn is discarded and
// the returned error carries the index of the last event applied cleanly.
func (a *Assembler) Consume(events <-chan llm.StreamEvent) (*Result, error) {
	for ev := range events {
		done, err := a.Feed(ev)
		if err != nil {
			// Unblock the producer; its remaining events are unusable.
			go func() {
				for range events {
				}
			}()
			return nil, err
		}
		if done {
			return a.Finalized()
		}
	}
	return nil, a.fail(fmt.Errorf("stream ended without turn_end"))
}

// Feed applies one event. It returns done=true once the turn is finalized.
// Feeding a finalized or errored assembler is itself a violation.
func (a *Assembler) Feed(ev llm.StreamEvent) (done bool, err error) {
	switch a.state {
	case stateFinalized:
		return false, a.fail(fmt.Errorf("event %q after turn_end", ev.Type))
	case stateErrored:
		return false, errors.ProtocolViolation(a.processed-1, fmt.Errorf("assembler already errored"))
	}

	if ev.Type == llm.EventProtocolError {
		cause := ev.Err
		if cause == nil {
			cause = fmt.Errorf("backend reported an unspecified protocol error")
		}
		return false, a.fail(cause)
	}

	if a.state == stateAwaitingTurn {
		if ev.Type != llm.EventTurnStart {
			return false, a.fail(fmt.Errorf("expected turn_start, got %q", ev.Type))
		}
		a.state = stateInTurn
		a.processed++
		a.log.Event(logging.EventStreamStart)
		return false, nil
	}

	switch ev.Type {
	case llm.EventTurnStart:
		return false, a.fail(fmt.Errorf("duplicate turn_start"))

	case llm.EventBlockStart:
		if _, exists := a.blocks[ev.Index]; exists {
			return false, a.fail(fmt.Errorf("block %d started twice", ev.Index))
		}
		a.blocks[ev.Index] = &blockBuf{
			kind:     ev.Kind,
			toolID:   ev.ToolID,
			toolName: ev.ToolName,
		}
		a.order = append(a.order, ev.Index)

	case llm.EventBlockDelta:
		buf, exists := a.blocks[ev.Index]
		if !exists {
			return false, a.fail(fmt.Errorf("delta for unknown block %d", ev.Index))
		}
		if buf.closed {
			return false, a.fail(fmt.Errorf("delta for closed block %d", ev.Index))
		}
		switch buf.kind {
		case llm.BlockText:
			buf.text.WriteString(ev.Fragment)
			if a.sink != nil {
				a.sink.StreamText(ev.Fragment)
			}
		case llm.BlockToolUse:
			buf.raw.WriteString(ev.Fragment)
		}

	case llm.EventBlockStop:
		buf, exists := a.blocks[ev.Index]
		if !exists {
			return false, a.fail(fmt.Errorf("stop for unknown block %d", ev.Index))
		}
		if buf.closed {
			return false, a.fail(fmt.Errorf("block %d stopped twice", ev.Index))
		}
		if buf.kind == llm.BlockToolUse {
			if err := parseToolArgs(buf); err != nil {
				return false, a.fail(err)
			}
		}
		buf.closed = true

	case llm.EventTurnMetadata:
		if ev.Usage != nil {
			u := *ev.Usage
			a.usage = &u
		}
		if ev.StopReason != "" {
			a.stop = ev.StopReason
		}

	case llm.EventTurnEnd:
		for _, idx := range a.order {
			if !a.blocks[idx].closed {
				return false, a.fail(fmt.Errorf("turn_end with block %d still open", idx))
			}
		}
		a.state = stateFinalized
		a.processed++
		a.log.Event(logging.EventStreamFinalize,
			logging.Count(len(a.order)),
			logging.StopReason(a.stop))
		return true, nil

	default:
		return false, a.fail(fmt.Errorf("unknown event type %q", ev.Type))
	}

	a.processed++
	return false, nil
}

// Finalized returns the assembled turn. It is only valid after Feed has
// returned done=true.
func (a *Assembler) Finalized() (*Result, error) {
	if a.state != stateFinalized {
		return nil, errors.ProtocolViolation(a.processed-1, fmt.Errorf("turn not finalized"))
	}

	result := &Result{
		StopReason: a.stop,
		Usage:      a.usage,
	}
	for _, idx := range a.order {
		buf := a.blocks[idx]
		switch buf.kind {
		case llm.BlockText:
			result.Blocks = append(result.Blocks, conversation.NewTextBlock(buf.text.String()))
		case llm.BlockToolUse:
			result.Blocks = append(result.Blocks,
				conversation.NewToolUseBlock(buf.toolID, buf.toolName, buf.input, buf.raw.Bytes()))
		}
	}
	return result, nil
}

// fail transitions to the errored state, discards all buffered content, and
// returns the violation carrying the last cleanly applied event index.
func (a *Assembler) fail(cause error) error {
	a.state = stateErrored
	a.blocks = make(map[int]*blockBuf)
	a.order = nil
	err := errors.ProtocolViolation(a.processed-1, cause)
	a.log.Event(logging.EventStreamError,
		logging.EventIndex(a.processed-1),
		logging.Error(cause))
	return err
}

// parseToolArgs decodes the accumulated argument payload at block stop. This
// is the single point where tool arguments are inspected as JSON; an empty
// payload decodes to an empty map, matching a tool called with no arguments.
func parseToolArgs(buf *blockBuf) error {
	raw := buf.raw.Bytes()
	if len(bytes.TrimSpace(raw)) == 0 {
		buf.input = map[string]any{}
		return nil
	}
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("tool %q arguments are not valid JSON", buf.toolName)
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("tool %q arguments are not a JSON object: %w", buf.toolName, err)
	}
	buf.input = input
	return nil
}
