package core

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Loop is a cooperative scheduler. Tasks posted to a Loop execute
// sequentially on whichever single goroutine is currently pumping it, so
// resources owned by the loop need no locks.
//
// A Loop is driven in one of two modes:
//  1. Start() spawns a dedicated pumping goroutine (long-lived loops).
//  2. RunUntil() pumps on the calling goroutine until a completion signal
//     (the bridge's inline path).
//
// Awaiting a [Future] from inside a loop task pumps the loop recursively, so
// other ready tasks keep running while one task waits. Only the awaiting task
// is suspended, never the whole loop.
type Loop struct {
	name  string
	queue *workQueue[Task]

	// signal is a wakeup hint: Post nudges it, pumps drain the queue until
	// empty before waiting on it again, so a dropped nudge is never lost work.
	signal chan struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	taskCtx context.Context

	closed  atomic.Bool
	started atomic.Bool
	stopped chan struct{}
	once    sync.Once

	// pump ownership: at most one goroutine drives the loop, but that
	// goroutine may pump recursively while a task awaits.
	pumpMu    sync.Mutex
	pumpGID   uint64
	pumpDepth int

	logger       Logger
	panicHandler PanicHandler
	metrics      Metrics
}

// NewLoop creates a Loop. The loop accepts posted tasks immediately, but runs
// nothing until a goroutine pumps it via Start or RunUntil.
func NewLoop(opts ...Option) *Loop {
	o := buildOptions(opts)
	ctx, cancel := context.WithCancel(o.BaseContext)

	l := &Loop{
		name:         o.Name,
		queue:        newWorkQueue[Task](),
		signal:       make(chan struct{}, 64),
		ctx:          ctx,
		cancel:       cancel,
		stopped:      make(chan struct{}),
		logger:       o.Logger,
		panicHandler: o.PanicHandler,
		metrics:      o.Metrics,
	}
	l.taskCtx = context.WithValue(ctx, loopKey, l)
	return l
}

// Name returns the loop's configured name.
func (l *Loop) Name() string {
	return l.name
}

// Post submits a task for execution. Tasks posted after Stop are dropped and
// recorded as rejected; Post never panics.
func (l *Loop) Post(task Task) {
	_ = l.TryPost(task)
}

// TryPost is Post with an error result, for callers that must know whether
// the task was accepted. Returns ErrLoopClosed after Stop.
func (l *Loop) TryPost(task Task) error {
	if task == nil {
		return nil
	}
	if l.closed.Load() {
		l.logger.Warn("task rejected", F("loop", l.name), F("reason", "closed"))
		l.metrics.RecordTaskRejected(l.name, "closed")
		return ErrLoopClosed
	}

	l.queue.push(task)
	l.metrics.RecordQueueDepth(l.name, l.queue.len())

	select {
	case l.signal <- struct{}{}:
	default:
		// Signal channel full; a wakeup is already pending.
	}

	// Stop may have raced the push and already swept the queue. Re-check and
	// sweep again so an accepted task is never stranded.
	if l.closed.Load() {
		l.drainCancelled()
	}
	return nil
}

// Start begins pumping the loop on a dedicated goroutine.
// Repeated calls are no-ops. Pair with Stop.
func (l *Loop) Start() {
	if l.closed.Load() {
		return
	}
	if !l.started.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer close(l.stopped)
		_ = l.pump(context.Background(), nil)
	}()
}

// RunUntil pumps the loop on the calling goroutine until done is closed.
// It returns ErrLoopBusy if another goroutine is already pumping, the ctx
// error if ctx expires first, and ErrLoopClosed if the loop is stopped while
// pumping.
func (l *Loop) RunUntil(ctx context.Context, done <-chan struct{}) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return l.pump(ctx, done)
}

// Stop closes the loop. The pumping goroutine (if started via Start) is
// joined, and any still-queued tasks are run once with the loop's cancelled
// task context so deferred completions (background handles, barriers) still
// reach a terminal state. Well-behaved tasks observe ctx.Err() and release
// their resources instead of doing real work. Safe to call multiple times.
func (l *Loop) Stop() {
	l.once.Do(func() {
		l.closed.Store(true)
		l.cancel()
		if l.started.Load() {
			<-l.stopped
		}
		l.drainCancelled()
	})
}

// drainCancelled runs remaining queued tasks with the cancelled task context.
// If another goroutine is still pumping (RunUntil racing Stop), that pump
// drains the queue itself before exiting; nothing is left behind either way.
func (l *Loop) drainCancelled() {
	if !l.enterPump() {
		return
	}
	defer l.exitPump()

	for {
		task, ok := l.queue.pop()
		if !ok {
			return
		}
		l.runTask(task)
	}
}

// IsClosed returns true if the loop has been stopped.
func (l *Loop) IsClosed() bool {
	return l.closed.Load()
}

// WaitIdle blocks until all tasks posted before the call have completed, by
// posting a barrier task and waiting for it to execute.
//
// Returns an error if the loop is closed or ctx expires first.
// Tasks posted after WaitIdle is called are not waited for.
func (l *Loop) WaitIdle(ctx context.Context) error {
	if l.closed.Load() {
		return ErrLoopClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	done := make(chan struct{})
	l.Post(func(taskCtx context.Context) {
		close(done)
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a point-in-time observability snapshot.
func (l *Loop) Stats() LoopStats {
	l.pumpMu.Lock()
	pumping := l.pumpDepth > 0
	l.pumpMu.Unlock()

	return LoopStats{
		Name:    l.name,
		Pending: l.queue.len(),
		Closed:  l.closed.Load(),
		Pumping: pumping,
	}
}

// pump executes ready tasks on the calling goroutine until done closes.
// A nil done pumps until the loop is stopped. Nested calls from the pumping
// goroutine itself are allowed; that is how awaits suspend cooperatively.
func (l *Loop) pump(waitCtx context.Context, done <-chan struct{}) error {
	if !l.enterPump() {
		return ErrLoopBusy
	}
	defer l.exitPump()

	for {
		select {
		case <-done:
			return nil
		default:
		}

		if task, ok := l.queue.pop(); ok {
			l.runTask(task)
			continue
		}

		select {
		case <-done:
			return nil
		case <-l.ctx.Done():
			// The loop context may derive from waitCtx; prefer the caller's
			// error when both fired.
			if waitCtx.Err() != nil {
				return waitCtx.Err()
			}
			return ErrLoopClosed
		case <-waitCtx.Done():
			return waitCtx.Err()
		case <-l.signal:
		}
	}
}

func (l *Loop) runTask(task Task) {
	start := time.Now()
	defer func() {
		l.metrics.RecordTaskDuration(l.name, time.Since(start))
		if r := recover(); r != nil {
			l.metrics.RecordTaskPanic(l.name, r)
			l.panicHandler.HandlePanic(l.taskCtx, l.name, -1, r, debug.Stack())
		}
	}()
	task(l.taskCtx)
}

// TaskContext returns the context handed to every task this loop runs. It
// carries the loop for RunningLoop detection.
func (l *Loop) TaskContext() context.Context {
	return l.taskCtx
}

func (l *Loop) enterPump() bool {
	gid := currentGoroutineID()

	l.pumpMu.Lock()
	defer l.pumpMu.Unlock()

	if l.pumpDepth > 0 && l.pumpGID != gid {
		return false
	}
	l.pumpGID = gid
	l.pumpDepth++
	return true
}

func (l *Loop) exitPump() {
	l.pumpMu.Lock()
	defer l.pumpMu.Unlock()

	l.pumpDepth--
	if l.pumpDepth == 0 {
		l.pumpGID = 0
	}
}

// onPumpGoroutine reports whether the calling goroutine is the one currently
// pumping this loop. Used by Future.Await to decide between nested pumping
// and plain blocking.
func (l *Loop) onPumpGoroutine() bool {
	gid := currentGoroutineID()

	l.pumpMu.Lock()
	defer l.pumpMu.Unlock()
	return l.pumpDepth > 0 && l.pumpGID == gid
}

// currentGoroutineID parses the goroutine id out of the stack header.
// Used only for pump-ownership assertions, never on a hot path.
func currentGoroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]

	var id uint64
	for i := len("goroutine "); i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			break
		}
		id = id*10 + uint64(b[i]-'0')
	}
	return id
}
