package inspect

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/five82/glint/internal/search"
)

// State is the lifecycle position of a Task.
type State int32

const (
	Pending State = iota
	Resolved
	Rejected
	Canceled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Task is one pattern search over the current read window. It settles
// exactly once: resolved when its matches were merged (or there was nothing
// to read), rejected with the failure, or canceled.
type Task struct {
	id      string
	pattern search.Pattern

	done  chan struct{}
	once  sync.Once
	state atomic.Int32
	err   error

	cancel func()
}

func newTask(id string, p search.Pattern) *Task {
	return &Task{id: id, pattern: p, done: make(chan struct{})}
}

// ID returns the task's unique identifier.
func (t *Task) ID() string { return t.id }

// Pattern returns the pattern being searched.
func (t *Task) Pattern() search.Pattern { return t.pattern }

// Done is closed once the task has settled.
func (t *Task) Done() <-chan struct{} { return t.done }

// State returns the current state.
func (t *Task) State() State { return State(t.state.Load()) }

// Err returns the settlement error, nil while pending or when resolved.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task settles or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the task if it is still running. It never blocks and is safe
// to call at any time, including after the task settled.
func (t *Task) Cancel() {
	if t.cancel != nil {
		t.cancel()
	}
}

// settle performs the single terminal transition. Later calls are no-ops and
// report false.
func (t *Task) settle(state State, err error) bool {
	settled := false
	t.once.Do(func() {
		t.err = err
		t.state.Store(int32(state))
		close(t.done)
		settled = true
	})
	return settled
}
