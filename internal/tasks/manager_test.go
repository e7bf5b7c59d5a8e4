package tasks

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mattgly/sage/internal/errors"
)

func TestTaskCompletes(t *testing.T) {
	m := NewManager(0)

	task := m.Spawn("call_1", func(ctx context.Context, emit func(string)) error {
		emit("line one\n")
		emit("line two\n")
		return nil
	})

	snap, err := m.Poll(task.ID(), true, 5*time.Second)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if snap.State != StateCompleted {
		t.Errorf("state = %v, want completed", snap.State)
	}
	if snap.Output != "line one\nline two\n" {
		t.Errorf("output = %q", snap.Output)
	}
	if snap.CallID != "call_1" {
		t.Errorf("call id = %q", snap.CallID)
	}
	if snap.WaitExpired {
		t.Error("WaitExpired set on a settled task")
	}
}

func TestTaskFailure(t *testing.T) {
	m := NewManager(0)

	task := m.Spawn("call_1", func(ctx context.Context, emit func(string)) error {
		emit("partial\n")
		return fmt.Errorf("boom")
	})

	snap, err := m.Poll(task.ID(), true, 5*time.Second)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if snap.State != StateFailed {
		t.Errorf("state = %v, want failed", snap.State)
	}
	if snap.Err == nil || !strings.Contains(snap.Err.Error(), "boom") {
		t.Errorf("err = %v", snap.Err)
	}
	if snap.Output != "partial\n" {
		t.Errorf("output before failure lost: %q", snap.Output)
	}
}

func TestNonBlockingPollSeesPartialOutput(t *testing.T) {
	m := NewManager(0)

	emitted := make(chan struct{})
	release := make(chan struct{})
	task := m.Spawn("call_1", func(ctx context.Context, emit func(string)) error {
		emit("early\n")
		close(emitted)
		<-release
		emit("late\n")
		return nil
	})

	<-emitted
	snap, err := m.Poll(task.ID(), false, 0)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if snap.State != StateRunning {
		t.Errorf("state = %v, want running", snap.State)
	}
	if snap.Output != "early\n" {
		t.Errorf("partial output = %q", snap.Output)
	}

	close(release)
	snap, err = m.Poll(task.ID(), true, 5*time.Second)
	if err != nil {
		t.Fatalf("final poll: %v", err)
	}
	if snap.Output != "early\nlate\n" {
		t.Errorf("final output = %q", snap.Output)
	}
}

func TestBlockingPollWaitExpired(t *testing.T) {
	m := NewManager(0)

	release := make(chan struct{})
	task := m.Spawn("call_1", func(ctx context.Context, emit func(string)) error {
		emit("working\n")
		<-release
		return nil
	})
	defer close(release)

	snap, err := m.Poll(task.ID(), true, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !snap.WaitExpired {
		t.Error("expected WaitExpired on the snapshot")
	}
	// The wait expiring is an observation failure, not a task failure.
	if snap.State == StateTimedOut {
		t.Error("poll timeout must not mark the task timed out")
	}
	if snap.Output != "working\n" {
		t.Errorf("snapshot output = %q", snap.Output)
	}
}

func TestTaskDeadlineTimesOut(t *testing.T) {
	m := NewManager(50 * time.Millisecond)

	task := m.Spawn("call_1", func(ctx context.Context, emit func(string)) error {
		<-ctx.Done()
		return ctx.Err()
	})

	snap, err := m.Poll(task.ID(), true, 5*time.Second)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if snap.State != StateTimedOut {
		t.Errorf("state = %v, want timed_out", snap.State)
	}
}

func TestCancelIsCooperative(t *testing.T) {
	m := NewManager(0)

	started := make(chan struct{})
	task := m.Spawn("call_1", func(ctx context.Context, emit func(string)) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	if err := m.Cancel(task.ID()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	snap, err := m.Poll(task.ID(), true, 5*time.Second)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if snap.State != StateCancelled {
		t.Errorf("state = %v, want cancelled", snap.State)
	}
}

func TestCancelIgnoringTaskKeepsRunning(t *testing.T) {
	m := NewManager(0)

	release := make(chan struct{})
	task := m.Spawn("call_1", func(ctx context.Context, emit func(string)) error {
		// Ignores ctx entirely.
		<-release
		return nil
	})

	if err := m.Cancel(task.ID()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	snap, _ := m.Poll(task.ID(), false, 0)
	if snap.State.Terminal() {
		t.Errorf("task settled without acknowledging cancellation: %v", snap.State)
	}

	close(release)
	snap, err := m.Poll(task.ID(), true, 5*time.Second)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	// The runner returned nil after the cancel request; it finished its work.
	if snap.State != StateCompleted {
		t.Errorf("state = %v, want completed", snap.State)
	}
}

func TestListPreservesSpawnOrder(t *testing.T) {
	m := NewManager(0)

	var ids []string
	for i := 0; i < 3; i++ {
		task := m.Spawn(fmt.Sprintf("call_%d", i), func(ctx context.Context, emit func(string)) error {
			return nil
		})
		ids = append(ids, task.ID())
	}

	snaps := m.List()
	if len(snaps) != 3 {
		t.Fatalf("list = %d entries, want 3", len(snaps))
	}
	for i, snap := range snaps {
		if snap.ID != ids[i] {
			t.Errorf("list[%d] = %s, want %s", i, snap.ID, ids[i])
		}
	}
}

func TestRemove(t *testing.T) {
	m := NewManager(0)

	t.Run("terminal task", func(t *testing.T) {
		task := m.Spawn("call_1", func(ctx context.Context, emit func(string)) error {
			return nil
		})
		if _, err := m.Poll(task.ID(), true, 5*time.Second); err != nil {
			t.Fatal(err)
		}

		if err := m.Remove(task.ID()); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if _, err := m.Poll(task.ID(), false, 0); err == nil {
			t.Error("removed task still observable")
		}
	})

	t.Run("live task", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		task := m.Spawn("call_2", func(ctx context.Context, emit func(string)) error {
			<-release
			return nil
		})

		err := m.Remove(task.ID())
		if err == nil {
			t.Fatal("expected error removing a live task")
		}
		if errors.GetCategory(err) != errors.CategoryTask {
			t.Errorf("category = %v", errors.GetCategory(err))
		}
	})
}

func TestPollUnknownTask(t *testing.T) {
	m := NewManager(0)
	if _, err := m.Poll("nope", false, 0); err == nil {
		t.Fatal("expected error for unknown task")
	}
}
