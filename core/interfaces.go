package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
// This allows custom panic handling, logging, and recovery strategies.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context from the panicked task (may carry the running Loop)
	// - name: The name of the loop or pool where the panic occurred
	// - workerID: The ID of the pool worker, or -1 for loop tasks
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, name string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, name string, workerID int, panicInfo any, stackTrace []byte) {
	if workerID >= 0 {
		fmt.Printf("[Worker %d @ %s] Panic: %v\nStack trace:\n%s",
			workerID, name, panicInfo, stackTrace)
	} else {
		fmt.Printf("[Loop %s] Panic: %v\nStack trace:\n%s",
			name, panicInfo, stackTrace)
	}
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// All methods are optional; implementations should handle nil receivers gracefully.
// Methods should be non-blocking and fast to avoid impacting task execution performance.
type Metrics interface {
	// RecordTaskDuration records how long a scheduled task took to execute.
	RecordTaskDuration(loopName string, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(name string, panicInfo any)

	// RecordTaskRejected records that a task or job was rejected (e.g., after close).
	RecordTaskRejected(name string, reason string)

	// RecordQueueDepth records the current ready-queue or job-queue depth.
	// This can be called periodically to track queue growth/shrinkage.
	RecordQueueDepth(name string, depth int)

	// RecordOffloadDuration records how long an offloaded blocking call ran
	// on a pool worker.
	RecordOffloadDuration(poolID string, duration time.Duration)

	// RecordBridgeExecution records one bridged run of scheduled work from a
	// blocking call site. Path is "inline" when a fresh loop ran on the
	// calling goroutine, "isolated" when a dedicated goroutine was spawned.
	RecordBridgeExecution(path string, duration time.Duration)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(loopName string, duration time.Duration) {}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(name string, panicInfo any) {}

// RecordTaskRejected is a no-op.
func (m *NilMetrics) RecordTaskRejected(name string, reason string) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(name string, depth int) {}

// RecordOffloadDuration is a no-op.
func (m *NilMetrics) RecordOffloadDuration(poolID string, duration time.Duration) {}

// RecordBridgeExecution is a no-op.
func (m *NilMetrics) RecordBridgeExecution(path string, duration time.Duration) {}
