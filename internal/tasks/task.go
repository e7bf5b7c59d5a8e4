// Package tasks runs tool invocations in the background and tracks their
// lifecycle. States move forward only: a terminal task never changes again.
package tasks

import (
	"strings"
	"sync"
	"time"
)

// State is a background task lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateTimedOut, StateCancelled:
		return true
	}
	return false
}

// Task is one background execution. The running goroutine is the only writer
// of output and state transitions; observers read through snapshots.
type Task struct {
	id     string
	callID string

	mu        sync.Mutex
	state     State
	output    strings.Builder
	err       error
	created   time.Time
	completed time.Time

	done   chan struct{}
	cancel func()
}

// Snapshot is a point-in-time view of a task. Output reflects everything
// appended so far, which for a live task may be partial.
type Snapshot struct {
	ID          string
	CallID      string
	State       State
	Output      string
	Err         error
	Created     time.Time
	Completed   time.Time
	WaitExpired bool
}

// ID returns the task identifier.
func (t *Task) ID() string {
	return t.id
}

// Done returns a channel closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// snapshot captures the current view under the task lock.
func (t *Task) snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		ID:        t.id,
		CallID:    t.callID,
		State:     t.state,
		Output:    t.output.String(),
		Err:       t.err,
		Created:   t.created,
		Completed: t.completed,
	}
}

// append adds output. Called only from the task's own goroutine.
func (t *Task) append(s string) {
	t.mu.Lock()
	t.output.WriteString(s)
	t.mu.Unlock()
}

// setRunning moves Pending to Running.
func (t *Task) setRunning() {
	t.mu.Lock()
	if t.state == StatePending {
		t.state = StateRunning
	}
	t.mu.Unlock()
}

// settle records the terminal state and closes the done channel. A second
// call is a no-op so the terminal state is immutable.
func (t *Task) settle(state State, err error) {
	t.mu.Lock()
	if t.state.Terminal() {
		t.mu.Unlock()
		return
	}
	t.state = state
	t.err = err
	t.completed = time.Now()
	t.mu.Unlock()
	close(t.done)
}
