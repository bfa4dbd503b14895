package loopbridge

import "github.com/loopbridge/loopbridge/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the loopbridge package for most use cases.

// Task is the unit of work (Closure)
type Task = core.Task

// Loop is the cooperative scheduler driving scheduled work
type Loop = core.Loop

// WorkerPool executes blocking jobs on a bounded set of workers
type WorkerPool = core.WorkerPool

// Logger is the structured logging interface
type Logger = core.Logger

// Metrics is the observability interface
type Metrics = core.Metrics

// PanicHandler is called when scheduled or offloaded work panics
type PanicHandler = core.PanicHandler

// TaskWithResult is a unit of work producing a value or error
type TaskWithResult[T any] = core.TaskWithResult[T]

// Constructors and helpers, re-exported for the common case of importing
// only the root package.
var (
	NewLoop       = core.NewLoop
	NewWorkerPool = core.NewWorkerPool

	InitGlobalWorkerPool     = core.InitGlobalWorkerPool
	GetGlobalWorkerPool      = core.GetGlobalWorkerPool
	ShutdownGlobalWorkerPool = core.ShutdownGlobalWorkerPool

	RunningLoop = core.RunningLoop
	WithoutLoop = core.WithoutLoop
)

// NewPromise creates an unresolved promise/future pair.
func NewPromise[T any]() *core.Promise[T] {
	return core.NewPromise[T]()
}
