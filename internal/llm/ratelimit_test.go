package llm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mattgly/sage/internal/config"
	"github.com/mattgly/sage/internal/conversation"
)

func TestTokenEstimator(t *testing.T) {
	e := NewTokenEstimator()

	if got := e.EstimateText(""); got != 0 {
		t.Errorf("empty = %d", got)
	}
	// 400 chars ~ 100 tokens + 20% buffer.
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'a'
	}
	if got := e.EstimateText(string(long)); got != 120 {
		t.Errorf("400 chars = %d tokens, want 120", got)
	}

	req := Request{
		System: string(long),
		Turns: []conversation.Turn{
			{Role: conversation.RoleUser, Blocks: []conversation.ContentBlock{
				conversation.NewTextBlock(string(long)),
			}},
		},
		Tools: []ToolDefinition{{Name: "read_file"}, {Name: "grep"}},
	}
	// system + turn text + turn overhead + tool overhead
	want := 120 + 120 + 4 + 200
	if got := e.EstimateRequest(req); got != want {
		t.Errorf("request = %d tokens, want %d", got, want)
	}
}

func testRateLimitConfig() *config.RateLimitConfig {
	return &config.RateLimitConfig{
		MaxRetries:         2,
		BaseDelay:          time.Millisecond,
		MaxDelay:           5 * time.Millisecond,
		TokensPerMinute:    1_000_000,
		EnableRateLimiting: true,
	}
}

func TestRateLimitedBackendPassThrough(t *testing.T) {
	inner := NewScriptedBackend(TextTurn("hello"))
	b := NewRateLimitedBackend(inner, testRateLimitConfig())
	defer b.Close()

	var events []StreamEvent
	for ev := range b.Stream(context.Background(), Request{Model: "m"}) {
		events = append(events, ev)
	}

	if len(events) == 0 || events[len(events)-1].Type != EventTurnEnd {
		t.Fatalf("events = %+v", events)
	}
}

func TestRateLimitedBackendOversizedRequestStillStreams(t *testing.T) {
	// 60 tokens/minute gives the minimum burst of 1000. The request below
	// estimates well past that, so an uncapped reservation could never be
	// satisfied and the stream would hang.
	cfg := &config.RateLimitConfig{
		MaxRetries:         1,
		BaseDelay:          time.Millisecond,
		MaxDelay:           5 * time.Millisecond,
		TokensPerMinute:    60,
		EnableRateLimiting: true,
	}

	inner := NewScriptedBackend(TextTurn("fits after all"))
	b := NewRateLimitedBackend(inner, cfg)
	defer b.Close()

	big := make([]byte, 8000)
	for i := range big {
		big[i] = 'a'
	}
	req := Request{Model: "m", System: string(big)}
	if est := b.estimator.EstimateRequest(req); est <= b.burst {
		t.Fatalf("estimate %d does not exceed burst %d", est, b.burst)
	}

	done := make(chan StreamEvent, 1)
	go func() {
		var last StreamEvent
		for ev := range b.Stream(context.Background(), req) {
			last = ev
		}
		done <- last
	}()

	select {
	case last := <-done:
		if last.Type != EventTurnEnd {
			t.Errorf("last event = %v, want turn_end", last.Type)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not settle; oversized request blocked on the limiter")
	}
}

func TestRateLimitedBackendRetriesOn429(t *testing.T) {
	inner := NewScriptedBackend(
		ErrorTurn(fmt.Errorf("429 too many requests")),
		TextTurn("recovered"),
	)
	b := NewRateLimitedBackend(inner, testRateLimitConfig())
	defer b.Close()

	var sawText, sawError bool
	for ev := range b.Stream(context.Background(), Request{Model: "m"}) {
		switch ev.Type {
		case EventBlockDelta:
			sawText = true
		case EventProtocolError:
			sawError = true
		}
	}

	if sawError {
		t.Error("rate limit error leaked through a successful retry")
	}
	if !sawText {
		t.Error("retried stream produced no text")
	}
	if inner.Calls() != 2 {
		t.Errorf("inner calls = %d, want 2", inner.Calls())
	}
}

func TestRateLimitedBackendGivesUpAfterMaxRetries(t *testing.T) {
	inner := NewScriptedBackend(
		ErrorTurn(fmt.Errorf("429 too many requests")),
		ErrorTurn(fmt.Errorf("429 too many requests")),
		ErrorTurn(fmt.Errorf("429 too many requests")),
	)
	b := NewRateLimitedBackend(inner, testRateLimitConfig())
	defer b.Close()

	var last StreamEvent
	for ev := range b.Stream(context.Background(), Request{Model: "m"}) {
		last = ev
	}

	if last.Type != EventProtocolError {
		t.Errorf("last event = %v", last.Type)
	}
	if inner.Calls() != 3 {
		t.Errorf("inner calls = %d, want 3 (initial + 2 retries)", inner.Calls())
	}
}

func TestRateLimitedBackendDoesNotRetryOtherErrors(t *testing.T) {
	inner := NewScriptedBackend(
		ErrorTurn(fmt.Errorf("invalid request")),
		TextTurn("never reached"),
	)
	b := NewRateLimitedBackend(inner, testRateLimitConfig())
	defer b.Close()

	var last StreamEvent
	for ev := range b.Stream(context.Background(), Request{Model: "m"}) {
		last = ev
	}

	if last.Type != EventProtocolError {
		t.Errorf("last event = %v", last.Type)
	}
	if inner.Calls() != 1 {
		t.Errorf("inner calls = %d, want 1", inner.Calls())
	}
}
