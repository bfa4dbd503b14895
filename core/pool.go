package core

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// WorkerPool manages a bounded set of worker goroutines that execute blocking
// jobs pulled from a shared queue. Parallelism is capped at the worker count;
// independent jobs are otherwise not serialized.
type WorkerPool struct {
	id      string
	workers int

	jobs   *workQueue[func()]
	signal chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	runningMu sync.RWMutex
	closed    atomic.Bool
	active    atomic.Int32

	logger       Logger
	panicHandler PanicHandler
	metrics      Metrics
}

// NewWorkerPool creates a new WorkerPool. Call Start before submitting jobs.
func NewWorkerPool(id string, workers int, opts ...Option) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	o := buildOptions(opts)

	return &WorkerPool{
		id:           id,
		workers:      workers,
		jobs:         newWorkQueue[func()](),
		signal:       make(chan struct{}, workers*2),
		logger:       o.Logger,
		panicHandler: o.PanicHandler,
		metrics:      o.Metrics,
	}
}

// Start starts all worker goroutines.
func (p *WorkerPool) Start(ctx context.Context) {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running || p.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i, p.ctx)
	}
}

// Submit enqueues a blocking job for execution on a pool worker.
// Returns ErrPoolClosed after Stop.
func (p *WorkerPool) Submit(job func()) error {
	if job == nil {
		return nil
	}
	if p.closed.Load() {
		p.metrics.RecordTaskRejected(p.id, "closed")
		return ErrPoolClosed
	}

	p.jobs.push(job)
	p.metrics.RecordQueueDepth(p.id, p.jobs.len())

	select {
	case p.signal <- struct{}{}:
	default:
		// Signal channel full; a wakeup is already pending.
	}
	return nil
}

// Stop stops the pool, joins all workers and drops queued jobs.
// Safe to call multiple times.
func (p *WorkerPool) Stop() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	p.runningMu.Lock()
	cancel := p.cancel
	wasRunning := p.running
	p.running = false
	p.runningMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasRunning {
		p.Join()
	}
	p.jobs.clear()
}

// Join waits for all worker goroutines to finish.
func (p *WorkerPool) Join() {
	p.wg.Wait()
}

// ID returns the ID of the pool.
func (p *WorkerPool) ID() string {
	return p.id
}

// WorkerCount returns the number of workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// IsRunning returns whether the pool is running.
func (p *WorkerPool) IsRunning() bool {
	p.runningMu.RLock()
	defer p.runningMu.RUnlock()
	return p.running
}

// Stats returns a point-in-time observability snapshot.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		ID:      p.id,
		Workers: p.workers,
		Queued:  p.jobs.len(),
		Active:  int(p.active.Load()),
		Running: p.IsRunning(),
	}
}

// workerLoop is the main loop for each worker.
func (p *WorkerPool) workerLoop(id int, ctx context.Context) {
	defer p.wg.Done()

	for {
		job, ok := p.getJob(ctx)
		if !ok {
			return
		}

		p.active.Add(1)
		start := time.Now()
		func() {
			defer func() {
				p.active.Add(-1)
				p.metrics.RecordOffloadDuration(p.id, time.Since(start))
				if r := recover(); r != nil {
					p.metrics.RecordTaskPanic(p.id, r)
					p.panicHandler.HandlePanic(ctx, p.id, id, r, debug.Stack())
				}
			}()
			job()
		}()
	}
}

func (p *WorkerPool) getJob(ctx context.Context) (func(), bool) {
	for {
		if job, ok := p.jobs.pop(); ok {
			return job, true
		}

		select {
		case <-p.signal:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// =============================================================================
// Global Worker Pool Helper (Singleton)
// =============================================================================

var (
	globalPool   *WorkerPool
	globalPoolMu sync.Mutex
)

// InitGlobalWorkerPool initializes the global worker pool with the specified
// number of workers and starts it immediately. Repeated calls are no-ops.
func InitGlobalWorkerPool(workers int, opts ...Option) {
	globalPoolMu.Lock()
	defer globalPoolMu.Unlock()

	if globalPool != nil {
		return
	}

	globalPool = NewWorkerPool("global-pool", workers, opts...)
	globalPool.Start(context.Background())
}

// GetGlobalWorkerPool returns the global worker pool, creating and starting
// one sized to the number of CPUs if none exists yet.
func GetGlobalWorkerPool() *WorkerPool {
	globalPoolMu.Lock()
	defer globalPoolMu.Unlock()

	if globalPool == nil {
		globalPool = NewWorkerPool("global-pool", runtime.NumCPU())
		globalPool.Start(context.Background())
	}
	return globalPool
}

// ShutdownGlobalWorkerPool stops the global worker pool.
func ShutdownGlobalWorkerPool() {
	globalPoolMu.Lock()
	defer globalPoolMu.Unlock()

	if globalPool != nil {
		globalPool.Stop()
		globalPool = nil
	}
}
