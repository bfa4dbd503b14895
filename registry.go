package loopbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/loopbridge/loopbridge/core"
)

// TaskState describes the lifecycle state of a background task.
type TaskState int32

const (
	// TaskStatePending: submitted, not yet finished.
	TaskStatePending TaskState = iota

	// TaskStateDone: completed successfully.
	TaskStateDone

	// TaskStateFailed: completed with an error or panic.
	TaskStateFailed

	// TaskStateCancelled: cancelled before or during execution.
	TaskStateCancelled
)

func (s TaskState) String() string {
	switch s {
	case TaskStatePending:
		return "pending"
	case TaskStateDone:
		return "done"
	case TaskStateFailed:
		return "failed"
	case TaskStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TaskHandle tracks one background task. Callers may discard the handle
// entirely: the process-wide registry, not the caller, keeps the task alive
// until it reaches a terminal state.
type TaskHandle[T any] struct {
	id      uuid.UUID
	state   atomic.Int32
	promise *core.Promise[T]

	mu        sync.Mutex
	cancelled bool
	cancel    context.CancelFunc
}

// ID returns the handle's unique id.
func (h *TaskHandle[T]) ID() uuid.UUID {
	return h.id
}

// State returns the task's current lifecycle state.
func (h *TaskHandle[T]) State() TaskState {
	return TaskState(h.state.Load())
}

// Done returns a channel that is closed when the task reaches a terminal
// state.
func (h *TaskHandle[T]) Done() <-chan struct{} {
	return h.promise.Future().Done()
}

// Await waits for the task to finish and returns its result or error.
// From scheduled code this suspends only the awaiting task.
func (h *TaskHandle[T]) Await(ctx context.Context) (T, error) {
	return h.promise.Future().Await(ctx)
}

// Result returns the task's outcome without blocking.
// Returns core.ErrNotResolved while the task is still pending.
func (h *TaskHandle[T]) Result() (T, error) {
	return h.promise.Future().Result()
}

// Cancel requests cancellation. A task that has not started yet will not run;
// a running task has its context cancelled and decides for itself when to
// stop. Either way the task still ends in a terminal state and leaves the
// registry.
func (h *TaskHandle[T]) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	cancel := h.cancel
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (h *TaskHandle[T]) cancelRequested() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

func (h *TaskHandle[T]) bindCancel(cancel context.CancelFunc) {
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()
}

// finish records the terminal state, removes the handle from the registry and
// only then wakes awaiters, so an awaiter never observes its own task still
// registered.
func (h *TaskHandle[T]) finish(state TaskState, value T, err error) {
	h.state.Store(int32(state))
	backgroundTasks.remove(h.id)
	if err != nil {
		h.promise.Fail(err)
	} else {
		h.promise.Complete(value)
	}
}

// =============================================================================
// Process-wide Background Task Registry
// =============================================================================

// taskRegistry retains strong references to in-flight background tasks so
// that fire-and-forget submissions are never dropped before completion.
// Membership is pure lifetime bookkeeping; it carries no other semantics.
type taskRegistry struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]any
}

var backgroundTasks = &taskRegistry{tasks: make(map[uuid.UUID]any)}

func (r *taskRegistry) add(id uuid.UUID, handle any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[id] = handle
}

func (r *taskRegistry) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
}

func (r *taskRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// BackgroundTaskCount reports how many background tasks are currently
// registered, i.e. running or about to start.
func BackgroundTaskCount() int {
	return backgroundTasks.size()
}

// SubmitBackground submits a unit of work for fire-and-forget execution on
// loop. The returned handle is registered in the process-wide registry before
// the task starts and removed the moment it reaches a terminal state (done,
// failed, or cancelled), so the caller may drop the handle immediately.
//
// Errors raised by the unit are captured on the handle and never propagate to
// the submitter.
func SubmitBackground[T any](loop *core.Loop, unit core.TaskWithResult[T]) *TaskHandle[T] {
	h := &TaskHandle[T]{
		id:      uuid.New(),
		promise: core.NewPromise[T](),
	}

	backgroundTasks.add(h.id, h)

	err := loop.TryPost(func(taskCtx context.Context) {
		runBackground(taskCtx, h, unit)
	})
	if err != nil {
		var zero T
		h.finish(TaskStateFailed, zero, fmt.Errorf("loopbridge: submit background task: %w", err))
	}
	return h
}

func runBackground[T any](taskCtx context.Context, h *TaskHandle[T], unit core.TaskWithResult[T]) {
	var zero T

	// A cancelled task context means the loop is draining at Stop; the unit
	// must not run, but the handle still has to leave the registry.
	if taskCtx.Err() != nil || h.cancelRequested() {
		h.finish(TaskStateCancelled, zero, context.Canceled)
		return
	}

	runCtx, cancel := context.WithCancel(taskCtx)
	defer cancel()
	h.bindCancel(cancel)

	defer func() {
		if r := recover(); r != nil {
			h.finish(TaskStateFailed, zero, fmt.Errorf("loopbridge: background task panicked: %v", r))
		}
	}()

	value, err := unit(runCtx)
	switch {
	case err == nil:
		h.finish(TaskStateDone, value, nil)
	case errors.Is(err, context.Canceled):
		h.finish(TaskStateCancelled, zero, err)
	default:
		h.finish(TaskStateFailed, zero, err)
	}
}
