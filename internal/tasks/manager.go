package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mattgly/sage/internal/errors"
	"github.com/mattgly/sage/internal/logging"
)

// Runner is the work a background task performs. It must honor ctx
// cancellation; emit appends to the task's output buffer.
type Runner func(ctx context.Context, emit func(string)) error

// Manager owns all background tasks for a process. Tasks are never evicted
// implicitly; completed tasks stay observable until Remove.
type Manager struct {
	mu       sync.Mutex
	tasks    map[string]*Task
	order    []string
	deadline time.Duration
	log      *logging.Logger
}

// NewManager creates a manager. deadline bounds each task's execution time;
// zero means no deadline.
func NewManager(deadline time.Duration) *Manager {
	return &Manager{
		tasks:    make(map[string]*Task),
		deadline: deadline,
		log:      logging.Global().WithPrefix("tasks"),
	}
}

// Spawn starts run in a new goroutine and returns the task immediately in
// the Pending state. callID links the task back to the tool call that
// requested it.
func (m *Manager) Spawn(callID string, run Runner) *Task {
	ctx := context.Background()
	var cancel context.CancelFunc
	if m.deadline > 0 {
		ctx, cancel = context.WithTimeout(ctx, m.deadline)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	task := &Task{
		id:      uuid.New().String(),
		callID:  callID,
		state:   StatePending,
		created: time.Now(),
		done:    make(chan struct{}),
		cancel:  cancel,
	}

	m.mu.Lock()
	m.tasks[task.id] = task
	m.order = append(m.order, task.id)
	m.mu.Unlock()

	m.log.Event(logging.EventTaskSpawn, logging.TaskID(task.id), logging.CallID(callID))

	go func() {
		defer cancel()

		task.setRunning()
		err := run(ctx, task.append)

		switch {
		case err == nil:
			task.settle(StateCompleted, nil)
			m.log.Event(logging.EventTaskComplete, logging.TaskID(task.id), logging.State(string(StateCompleted)))
		case ctx.Err() == context.DeadlineExceeded:
			task.settle(StateTimedOut, err)
			m.log.Event(logging.EventTaskTimeout, logging.TaskID(task.id))
		case ctx.Err() == context.Canceled:
			task.settle(StateCancelled, err)
			m.log.Event(logging.EventTaskCancel, logging.TaskID(task.id))
		default:
			task.settle(StateFailed, err)
			m.log.Event(logging.EventTaskComplete, logging.TaskID(task.id),
				logging.State(string(StateFailed)), logging.Error(err))
		}
	}()

	return task
}

// Poll returns a snapshot of the task. With block=false it returns
// immediately, possibly with partial output. With block=true it waits until
// the task settles or timeout elapses; on timeout the snapshot carries
// WaitExpired and the task's own state is untouched.
func (m *Manager) Poll(id string, block bool, timeout time.Duration) (Snapshot, error) {
	task, err := m.get(id)
	if err != nil {
		return Snapshot{}, err
	}

	if !block {
		return task.snapshot(), nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-task.Done():
		return task.snapshot(), nil
	case <-timer.C:
		snap := task.snapshot()
		snap.WaitExpired = true
		return snap, nil
	}
}

// List returns snapshots of all tasks in spawn order.
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	tasks := make([]*Task, 0, len(ids))
	for _, id := range ids {
		tasks = append(tasks, m.tasks[id])
	}
	m.mu.Unlock()

	snaps := make([]Snapshot, 0, len(tasks))
	for _, t := range tasks {
		snaps = append(snaps, t.snapshot())
	}
	return snaps
}

// Cancel requests cooperative cancellation. The task reaches Cancelled only
// when its goroutine observes the context and returns; Cancel itself does
// not flip the state. Cancelling a terminal task is a no-op.
func (m *Manager) Cancel(id string) error {
	task, err := m.get(id)
	if err != nil {
		return err
	}
	task.cancel()
	return nil
}

// CancelAll requests cancellation of every live task.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	tasks := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	m.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
}

// Remove evicts a terminal task. Removing a live task is an error.
func (m *Manager) Remove(id string) error {
	task, err := m.get(id)
	if err != nil {
		return err
	}
	if !task.snapshot().State.Terminal() {
		return errors.TaskNotTerminal(id)
	}

	m.mu.Lock()
	delete(m.tasks, id)
	for i, tid := range m.order {
		if tid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.log.Event(logging.EventTaskRemove, logging.TaskID(id))
	return nil
}

func (m *Manager) get(id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, errors.TaskNotFound(id)
	}
	return task, nil
}
