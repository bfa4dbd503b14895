package loopbridge_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	loopbridge "github.com/loopbridge/loopbridge"
	"github.com/loopbridge/loopbridge/core"
)

// TestSubmitBackground_RegisteredUntilDone tests registry retention
// Given: a gated background task
// When: the registry is inspected before and after completion
// Then: the task is registered while running and removed once done
func TestSubmitBackground_RegisteredUntilDone(t *testing.T) {
	loop := core.NewLoop()
	loop.Start()
	defer loop.Stop()

	started := make(chan struct{})
	release := make(chan struct{})

	handle := loopbridge.SubmitBackground(loop, func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 42, nil
	})

	if got := loopbridge.BackgroundTaskCount(); got != 1 {
		t.Errorf("registry size after submit: got = %d, want 1", got)
	}
	if got := handle.State(); got != loopbridge.TaskStatePending {
		t.Errorf("state after submit: got = %v, want pending", got)
	}

	<-started
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := handle.Await(ctx)
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if got != 42 {
		t.Errorf("result: got = %d, want 42", got)
	}

	if got := loopbridge.BackgroundTaskCount(); got != 0 {
		t.Errorf("registry size after completion: got = %d, want 0", got)
	}
	if got := handle.State(); got != loopbridge.TaskStateDone {
		t.Errorf("state after completion: got = %v, want done", got)
	}
}

// TestSubmitBackground_ErrorCaptured tests failure semantics
// Given: a background task that returns an error
// When: the task completes
// Then: the error is observable on the handle, the submitter saw no error,
// and the registry is empty
func TestSubmitBackground_ErrorCaptured(t *testing.T) {
	loop := core.NewLoop()
	loop.Start()
	defer loop.Stop()

	boom := errors.New("boom")
	handle := loopbridge.SubmitBackground(loop, func(ctx context.Context) (int, error) {
		return 0, boom
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := handle.Await(ctx)
	if !errors.Is(err, boom) {
		t.Errorf("captured error: got = %v, want boom", err)
	}
	if got := handle.State(); got != loopbridge.TaskStateFailed {
		t.Errorf("state: got = %v, want failed", got)
	}
	if got := loopbridge.BackgroundTaskCount(); got != 0 {
		t.Errorf("registry size after failure: got = %d, want 0", got)
	}
}

// TestSubmitBackground_PanicCaptured tests panic containment
// Given: a background task that panics
// When: the task completes
// Then: the handle reports failure and the registry is empty
func TestSubmitBackground_PanicCaptured(t *testing.T) {
	loop := core.NewLoop()
	loop.Start()
	defer loop.Stop()

	handle := loopbridge.SubmitBackground(loop, func(ctx context.Context) (int, error) {
		panic("background exploded")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := handle.Await(ctx)
	if err == nil {
		t.Fatal("captured error: got = nil, want panic error")
	}
	if got := handle.State(); got != loopbridge.TaskStateFailed {
		t.Errorf("state: got = %v, want failed", got)
	}
	if got := loopbridge.BackgroundTaskCount(); got != 0 {
		t.Errorf("registry size after panic: got = %d, want 0", got)
	}
}

// TestSubmitBackground_Cancel tests cancellation unregisters the task
// Given: a running background task that honors its context
// When: Cancel is called on the handle
// Then: the task ends cancelled and the registry is empty
func TestSubmitBackground_Cancel(t *testing.T) {
	loop := core.NewLoop()
	loop.Start()
	defer loop.Stop()

	started := make(chan struct{})
	handle := loopbridge.SubmitBackground(loop, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	<-started
	handle.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := handle.Await(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("captured error: got = %v, want context.Canceled", err)
	}
	if got := handle.State(); got != loopbridge.TaskStateCancelled {
		t.Errorf("state: got = %v, want cancelled", got)
	}
	if got := loopbridge.BackgroundTaskCount(); got != 0 {
		t.Errorf("registry size after cancel: got = %d, want 0", got)
	}
}

// TestSubmitBackground_CancelBeforeStart tests pre-start cancellation
// Given: a background task queued behind a gate task
// When: Cancel is called before it starts
// Then: the unit never runs and the handle ends cancelled
func TestSubmitBackground_CancelBeforeStart(t *testing.T) {
	loop := core.NewLoop()
	loop.Start()
	defer loop.Stop()

	release := make(chan struct{})
	loop.Post(func(ctx context.Context) {
		<-release
	})

	var ran bool
	handle := loopbridge.SubmitBackground(loop, func(ctx context.Context) (int, error) {
		ran = true
		return 1, nil
	})

	handle.Cancel()
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := handle.Await(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("captured error: got = %v, want context.Canceled", err)
	}
	if ran {
		t.Error("cancelled unit ran: got = true, want false")
	}
	if got := handle.State(); got != loopbridge.TaskStateCancelled {
		t.Errorf("state: got = %v, want cancelled", got)
	}
}

// TestSubmitBackground_SubmitToClosedLoop tests rejection handling
// Given: a stopped loop
// When: a background task is submitted
// Then: the handle ends failed with ErrLoopClosed and the registry is empty
func TestSubmitBackground_SubmitToClosedLoop(t *testing.T) {
	loop := core.NewLoop()
	loop.Start()
	loop.Stop()

	handle := loopbridge.SubmitBackground(loop, func(ctx context.Context) (int, error) {
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := handle.Await(ctx)
	if !errors.Is(err, core.ErrLoopClosed) {
		t.Errorf("captured error: got = %v, want ErrLoopClosed", err)
	}
	if got := loopbridge.BackgroundTaskCount(); got != 0 {
		t.Errorf("registry size: got = %d, want 0", got)
	}
}

// TestSubmitBackground_StopBeforePump tests teardown of a never-pumped loop
// Given: a background task submitted to a loop that is never started
// When: the loop is stopped
// Then: the unit never runs, the handle resolves cancelled and the registry
// is empty
func TestSubmitBackground_StopBeforePump(t *testing.T) {
	loop := core.NewLoop()

	var ran atomic.Bool
	handle := loopbridge.SubmitBackground(loop, func(ctx context.Context) (int, error) {
		ran.Store(true)
		return 1, nil
	})

	loop.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := handle.Await(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("captured error: got = %v, want context.Canceled", err)
	}
	if got := handle.State(); got != loopbridge.TaskStateCancelled {
		t.Errorf("state: got = %v, want cancelled", got)
	}
	if ran.Load() {
		t.Error("unit ran during teardown: got = true, want false")
	}
	if got := loopbridge.BackgroundTaskCount(); got != 0 {
		t.Errorf("registry size after stop: got = %d, want 0", got)
	}
}

// TestSubmitBackground_ManyConcurrent tests registry drain under load
// Given: 100 background tasks across 4 loops, each sleeping a random
// short interval
// When: all tasks finish
// Then: the registry is empty
func TestSubmitBackground_ManyConcurrent(t *testing.T) {
	loops := make([]*core.Loop, 4)
	for i := range loops {
		loops[i] = core.NewLoop()
		loops[i].Start()
		defer loops[i].Stop()
	}

	rng := rand.New(rand.NewSource(1))
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		delay := time.Duration(rng.Intn(5)+1) * time.Millisecond
		handle := loopbridge.SubmitBackground(loops[i%len(loops)], func(ctx context.Context) (int, error) {
			time.Sleep(delay)
			return 0, nil
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-handle.Done()
		}()
	}

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(10 * time.Second):
		t.Fatal("background tasks did not finish")
	}

	if got := loopbridge.BackgroundTaskCount(); got != 0 {
		t.Errorf("registry size after drain: got = %d, want 0", got)
	}
}

// TestSubmitBackground_DiscardedHandle tests fire-and-forget retention
// Given: a submission whose handle is immediately discarded
// When: the loop drains
// Then: the task still ran to completion and left the registry
func TestSubmitBackground_DiscardedHandle(t *testing.T) {
	loop := core.NewLoop()
	loop.Start()
	defer loop.Stop()

	ran := make(chan struct{})
	loopbridge.SubmitBackground(loop, func(ctx context.Context) (struct{}, error) {
		close(ran)
		return struct{}{}, nil
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("discarded-handle task did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := loop.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle failed: %v", err)
	}
	if got := loopbridge.BackgroundTaskCount(); got != 0 {
		t.Errorf("registry size: got = %d, want 0", got)
	}
}
