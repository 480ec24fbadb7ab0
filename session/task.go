package session

import (
	"context"

	"github.com/google/uuid"
)

// Task is the future of an operation started by the session.
type Task[T any] struct {
	id     string
	name   string
	device string
	done   chan struct{}
	cancel context.CancelFunc

	result T
	err    error
}

func newTask[T any](name string, device string, cancel context.CancelFunc) *Task[T] {
	return &Task[T]{
		id:     uuid.NewString(),
		name:   name,
		device: device,
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

func (t *Task[T]) ID() string {
	return t.id
}

func (t *Task[T]) Name() string {
	return t.name
}

// Device is the id of the device the task operates on, empty for global tasks.
func (t *Task[T]) Device() string {
	return t.device
}

func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task completes or ctx is done.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome of a completed task. It must be called after Done is closed.
func (t *Task[T]) Result() (T, error) {
	return t.result, t.err
}

// Cancel requests a cooperative stop. A command already running is left to finish.
func (t *Task[T]) Cancel() {
	t.cancel()
}

func (t *Task[T]) finish(result T, err error) {
	t.result = result
	t.err = err
	close(t.done)
}
