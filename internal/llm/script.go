package llm

import (
	"context"
	"sync"
)

// ScriptedBackend replays canned StreamEvent sequences and records the
// requests it receives. It implements Backend for tests.
type ScriptedBackend struct {
	mu        sync.Mutex
	responses [][]StreamEvent
	requests  []Request
	next      int
}

// NewScriptedBackend creates a backend that replays the given event
// sequences, one per Stream call, in order.
func NewScriptedBackend(responses ...[]StreamEvent) *ScriptedBackend {
	return &ScriptedBackend{responses: responses}
}

// Enqueue appends another response sequence to the script.
func (s *ScriptedBackend) Enqueue(events []StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, events)
}

// Stream records the request and replays the next scripted sequence. Streams
// past the end of the script replay an empty error turn.
func (s *ScriptedBackend) Stream(ctx context.Context, req Request) <-chan StreamEvent {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	var events []StreamEvent
	if s.next < len(s.responses) {
		events = s.responses[s.next]
		s.next++
	}
	s.mu.Unlock()

	ch := make(chan StreamEvent, len(events)+1)
	go func() {
		defer close(ch)
		for _, ev := range events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Close implements Backend.
func (s *ScriptedBackend) Close() error {
	return nil
}

// Requests returns a copy of the recorded requests.
func (s *ScriptedBackend) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns how many times Stream was invoked.
func (s *ScriptedBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// TextTurn builds a scripted event sequence for a plain text response.
func TextTurn(fragments ...string) []StreamEvent {
	events := []StreamEvent{
		{Type: EventTurnStart},
		{Type: EventBlockStart, Index: 0, Kind: BlockText},
	}
	for _, f := range fragments {
		events = append(events, StreamEvent{Type: EventBlockDelta, Index: 0, Fragment: f})
	}
	events = append(events,
		StreamEvent{Type: EventBlockStop, Index: 0},
		StreamEvent{Type: EventTurnMetadata, StopReason: "end_turn", Usage: &Usage{InputTokens: 10, OutputTokens: 5}},
		StreamEvent{Type: EventTurnEnd},
	)
	return events
}

// ToolUseTurn builds a scripted event sequence for a single tool call whose
// argument JSON arrives split into the given fragments.
func ToolUseTurn(id, name string, fragments ...string) []StreamEvent {
	events := []StreamEvent{
		{Type: EventTurnStart},
		{Type: EventBlockStart, Index: 0, Kind: BlockToolUse, ToolID: id, ToolName: name},
	}
	for _, f := range fragments {
		events = append(events, StreamEvent{Type: EventBlockDelta, Index: 0, Fragment: f})
	}
	events = append(events,
		StreamEvent{Type: EventBlockStop, Index: 0},
		StreamEvent{Type: EventTurnMetadata, StopReason: "tool_use", Usage: &Usage{InputTokens: 10, OutputTokens: 5}},
		StreamEvent{Type: EventTurnEnd},
	)
	return events
}

// ErrorTurn builds a scripted sequence that fails partway through a turn.
func ErrorTurn(err error, prefix ...StreamEvent) []StreamEvent {
	events := append([]StreamEvent{}, prefix...)
	return append(events, StreamEvent{Type: EventProtocolError, Err: err})
}
