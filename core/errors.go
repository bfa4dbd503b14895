package core

import "errors"

var (
	// ErrLoopClosed is returned when an operation requires a loop that has
	// already been stopped.
	ErrLoopClosed = errors.New("core: loop is closed")

	// ErrLoopBusy is returned by RunUntil when another goroutine is already
	// pumping the loop. A loop is driven by exactly one goroutine at a time.
	ErrLoopBusy = errors.New("core: loop is already being pumped by another goroutine")

	// ErrPoolClosed is returned by Submit after the worker pool has stopped.
	ErrPoolClosed = errors.New("core: worker pool is closed")

	// ErrNotResolved is returned by Future.Result while the future is still
	// pending.
	ErrNotResolved = errors.New("core: future is not resolved yet")
)
