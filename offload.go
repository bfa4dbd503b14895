package loopbridge

import (
	"fmt"

	"github.com/loopbridge/loopbridge/core"
)

// RunBlocking offloads a blocking function to the global worker pool and
// returns an awaitable future for its result. The scheduler goroutine is
// never blocked: fn runs on a pool worker, and awaiting the future from
// scheduled code suspends only the awaiting task.
//
// Arguments are bound by closure. Any error fn returns is delivered
// unmodified at the await point; a panic inside fn resolves the future with
// an error describing the panic.
func RunBlocking[T any](fn func() (T, error)) *core.Future[T] {
	return RunBlockingOn(core.GetGlobalWorkerPool(), fn)
}

// RunBlockingOn is RunBlocking against an explicit worker pool.
func RunBlockingOn[T any](pool *core.WorkerPool, fn func() (T, error)) *core.Future[T] {
	promise := core.NewPromise[T]()

	err := pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				promise.Fail(fmt.Errorf("loopbridge: blocking call panicked: %v", r))
			}
		}()

		value, err := fn()
		if err != nil {
			promise.Fail(err)
		} else {
			promise.Complete(value)
		}
	})
	if err != nil {
		promise.Fail(err)
	}

	return promise.Future()
}
