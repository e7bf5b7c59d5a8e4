package conversation

import "testing"

func TestHistoryAppend(t *testing.T) {
	h := NewHistory()

	first, err := h.Append(RoleUser, []ContentBlock{NewTextBlock("hi")})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := h.Append(RoleAssistant, []ContentBlock{NewTextBlock("hello")})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if first.Seq != 0 || second.Seq != 1 {
		t.Errorf("seqs = %d, %d", first.Seq, second.Seq)
	}
	if h.Len() != 2 {
		t.Errorf("len = %d", h.Len())
	}
	last, ok := h.Last()
	if !ok || last.Seq != 1 {
		t.Errorf("last = %+v, %v", last, ok)
	}
}

func TestHistoryToolResultCorrelation(t *testing.T) {
	h := NewHistory()

	_, err := h.Append(RoleTool, []ContentBlock{NewToolResultBlock("call_1", "out", false)})
	if err == nil {
		t.Fatal("orphan tool result accepted")
	}

	if _, err := h.Append(RoleAssistant, []ContentBlock{
		NewToolUseBlock("call_1", "read_file", map[string]any{"path": "a"}, []byte(`{"path":"a"}`)),
	}); err != nil {
		t.Fatalf("append tool use: %v", err)
	}
	if _, err := h.Append(RoleTool, []ContentBlock{NewToolResultBlock("call_1", "out", false)}); err != nil {
		t.Fatalf("append correlated result: %v", err)
	}
}

func TestTurnAccessors(t *testing.T) {
	turn := Turn{Role: RoleAssistant, Blocks: []ContentBlock{
		NewTextBlock("part one "),
		NewToolUseBlock("call_1", "grep", nil, nil),
		NewTextBlock("part two"),
		NewToolUseBlock("call_2", "read_file", nil, nil),
	}}

	if got := turn.Text(); got != "part one part two" {
		t.Errorf("Text = %q", got)
	}
	uses := turn.ToolUses()
	if len(uses) != 2 || uses[0].ID != "call_1" || uses[1].ID != "call_2" {
		t.Errorf("ToolUses = %+v", uses)
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory()
	if _, err := h.Append(RoleUser, []ContentBlock{NewTextBlock("x")}); err != nil {
		t.Fatal(err)
	}

	h.Clear()
	if h.Len() != 0 {
		t.Errorf("len after clear = %d", h.Len())
	}
	turn, err := h.Append(RoleUser, []ContentBlock{NewTextBlock("y")})
	if err != nil {
		t.Fatal(err)
	}
	if turn.Seq != 0 {
		t.Errorf("seq after clear = %d", turn.Seq)
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	h := NewHistory()
	if _, err := h.Append(RoleUser, []ContentBlock{NewTextBlock("x")}); err != nil {
		t.Fatal(err)
	}

	turns := h.Turns()
	turns[0] = Turn{}
	if got := h.Turns()[0].Text(); got != "x" {
		t.Errorf("history mutated through Turns copy: %q", got)
	}
}
