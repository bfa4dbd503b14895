package loopbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/loopbridge/loopbridge/core"
)

// Bridge execution paths, recorded in metrics.
const (
	bridgePathInline   = "inline"
	bridgePathIsolated = "isolated"
)

// RunToCompletion runs a scheduled unit of work from a blocking call site and
// returns its result synchronously, raising whatever error the unit raised.
//
// The execution path depends on the ambient scheduler state queried from ctx:
//
//   - No loop is running for this caller (the common case, including a nil
//     ctx): a fresh Loop is started on the calling goroutine, the unit is
//     driven to completion, and the loop is torn down before returning.
//   - A loop is already running for this caller (reentrant call from inside
//     scheduled code): running the unit here would deadlock the loop, so a
//     dedicated goroutine is spawned with a fresh, isolated Loop. The caller
//     blocks until that goroutine has finished and been joined.
//
// On every path all spawned resources are reclaimed before the call returns.
func RunToCompletion[T any](ctx context.Context, unit core.TaskWithResult[T]) (T, error) {
	start := time.Now()

	if core.RunningLoop(ctx) != nil {
		defer func() {
			getMetrics().RecordBridgeExecution(bridgePathIsolated, time.Since(start))
		}()
		return runIsolated(ctx, unit)
	}

	defer func() {
		getMetrics().RecordBridgeExecution(bridgePathInline, time.Since(start))
	}()
	return runInline(ctx, unit)
}

// runInline drives a fresh loop on the calling goroutine.
func runInline[T any](ctx context.Context, unit core.TaskWithResult[T]) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	loop := core.NewLoop(core.WithName("bridge-inline"), core.WithBaseContext(ctx))
	defer loop.Stop()

	promise := core.NewPromise[T]()
	loop.Post(resolveInto(promise, unit))

	if err := loop.RunUntil(ctx, promise.Future().Done()); err != nil {
		var zero T
		return zero, err
	}
	return promise.Future().Result()
}

// runIsolated spawns a dedicated goroutine hosting a fresh loop, runs the
// unit there, and joins the goroutine before returning. The ambient loop mark
// is stripped so the isolated work does not observe the caller's loop.
func runIsolated[T any](ctx context.Context, unit core.TaskWithResult[T]) (T, error) {
	base := core.WithoutLoop(ctx)
	promise := core.NewPromise[T]()
	joined := make(chan struct{})

	var runErr error
	go func() {
		defer close(joined)

		loop := core.NewLoop(core.WithName("bridge-isolated"), core.WithBaseContext(base))
		defer loop.Stop()

		loop.Post(resolveInto(promise, unit))
		runErr = loop.RunUntil(base, promise.Future().Done())
	}()

	<-joined

	if promise.Future().Resolved() {
		return promise.Future().Result()
	}

	var zero T
	if runErr != nil {
		return zero, runErr
	}
	return zero, ctx.Err()
}

// resolveInto wraps a unit of work so its outcome, panics included, lands in
// the promise.
func resolveInto[T any](promise *core.Promise[T], unit core.TaskWithResult[T]) core.Task {
	return func(taskCtx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				promise.Fail(fmt.Errorf("loopbridge: scheduled work panicked: %v", r))
			}
		}()

		value, err := unit(taskCtx)
		if err != nil {
			promise.Fail(err)
		} else {
			promise.Complete(value)
		}
	}
}
