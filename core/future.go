package core

import (
	"context"
	"sync"
)

// Promise is the producer side of a [Future]. The first Complete or Fail call
// resolves the future; later calls are no-ops.
type Promise[T any] struct {
	f *Future[T]
}

// NewPromise creates an unresolved promise/future pair.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{f: &Future[T]{done: make(chan struct{})}}
}

// Complete resolves the future with a value.
// Returns false if the future was already resolved.
func (p *Promise[T]) Complete(value T) bool {
	return p.f.settle(value, nil)
}

// Fail resolves the future with an error.
// Returns false if the future was already resolved.
func (p *Promise[T]) Fail(err error) bool {
	var zero T
	return p.f.settle(zero, err)
}

// Future returns the consumer side of this promise.
func (p *Promise[T]) Future() *Future[T] {
	return p.f
}

// Future is an awaitable result of asynchronous work.
//
// From scheduled code, Await suspends only the calling task: other ready work
// on the same loop keeps running while the future is pending. From plain
// blocking code, Await simply blocks the calling goroutine.
type Future[T any] struct {
	done   chan struct{}
	once   sync.Once
	result T
	err    error
}

func (f *Future[T]) settle(value T, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.result = value
		f.err = err
		close(f.done)
		resolved = true
	})
	return resolved
}

// Done returns a channel that is closed when the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Resolved reports whether the future has a value or an error.
func (f *Future[T]) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the resolved value or error. It returns ErrNotResolved if
// the future is still pending; it never blocks.
func (f *Future[T]) Result() (T, error) {
	if !f.Resolved() {
		var zero T
		return zero, ErrNotResolved
	}
	return f.result, f.err
}

// Await waits for the future to resolve and returns its value or error.
// Errors produced by the underlying work are returned unmodified.
//
// When ctx carries the loop currently pumping on this goroutine, Await keeps
// that loop's other ready tasks running while it waits (cooperative
// suspension). Otherwise it blocks until resolution or ctx cancellation.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if l := RunningLoop(ctx); l != nil && l.onPumpGoroutine() {
		if err := l.pump(ctx, f.done); err != nil {
			var zero T
			return zero, err
		}
		return f.result, f.err
	}

	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
