// Package loopbridge lets code written for a cooperative single-goroutine
// scheduler interoperate safely with plain blocking call sites, and vice
// versa.
//
// Four pieces work together:
//
// Background task registry: fire-and-forget scheduled work is retained by a
// process-wide registry until it finishes, so a submission whose handle the
// caller discards is never lost mid-flight:
//
//	loopbridge.SubmitBackground(loop, func(ctx context.Context) (int, error) {
//		return doWork(ctx)
//	})
//
// Blocking-call offloader: run a blocking function from scheduled code
// without stalling the loop. The call runs on a bounded worker pool and the
// result is awaited cooperatively:
//
//	future := loopbridge.RunBlocking(func() ([]byte, error) {
//		return os.ReadFile(path) // blocks a pool worker, not the loop
//	})
//	data, err := future.Await(ctx)
//
// Scheduler bridge: run scheduled work from blocking code. If the caller is
// already inside a running loop, the work is executed on an isolated loop on
// its own goroutine to avoid reentrancy deadlock:
//
//	result, err := loopbridge.RunToCompletion(ctx, unit)
//
// Sync twins: declare a blocking counterpart for a scheduled method once, at
// type construction, either as a typed wrapper (SyncTwin) or through a named
// registration table (TwinBuilder / TwinSet). Twins route through the bridge,
// so they work with or without a scheduler running.
//
// # Scheduling model
//
// The core package provides the cooperative scheduler (core.Loop): one
// pumping goroutine executes posted tasks sequentially. Multiple independent
// loops may run concurrently on different goroutines. Awaiting a core.Future
// from inside a loop task suspends only that task; the loop keeps pumping
// other ready work. Whether a caller is running under a loop is an explicit
// query (core.RunningLoop) against the task context, never a probe that
// relies on failures.
//
// # Error handling
//
// Errors from user-supplied work always surface unmodified to whoever awaits
// or blocks on that work. Registry bookkeeping never raises. Infrastructure
// errors are sentinel values (core.ErrLoopClosed, core.ErrPoolClosed, ...)
// and nothing in this package retries anything.
package loopbridge
