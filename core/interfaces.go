package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task's entry closure panics.
// This allows custom panic handling, logging, and recovery strategies.
//
// A panic in an entry closure is an ordinary task failure: it becomes a
// non-zero exit status for that task and never terminates the process on its
// own. Implementations should be thread-safe as they may be called
// concurrently from multiple scheduler threads.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context of the panicked task
	// - schedulerID: The scheduler that was driving the task
	// - taskName: The debug label of the panicked task
	// - panicInfo: The panic value recovered from the entry closure
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, schedulerID SchedulerID, taskName string, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs panics through the scheduler module logger.
type DefaultPanicHandler struct{}

// HandlePanic logs the panic and its stack trace.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, schedulerID SchedulerID, taskName string, panicInfo any, stackTrace []byte) {
	ModuleLogger("scheduler").Error("task panicked",
		F("scheduler", schedulerID),
		F("task", taskName),
		F("panic", fmt.Sprintf("%v", panicInfo)),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting runtime execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution
// performance, and thread-safe as they are called from scheduler threads.
type Metrics interface {
	// RecordTaskSpawned records that a task was created on a scheduler.
	RecordTaskSpawned(schedulerID SchedulerID)

	// RecordTaskExited records a task reaching its terminal state.
	//
	// Parameters:
	// - schedulerID: The owning scheduler
	// - status: The task's exit status
	// - duration: Wall time from start to exit
	RecordTaskExited(schedulerID SchedulerID, status int, duration time.Duration)

	// RecordTaskPanic records that a task's entry closure panicked.
	RecordTaskPanic(schedulerID SchedulerID, panicInfo any)

	// RecordQueueDepth records the current run-queue depth of a scheduler.
	RecordQueueDepth(schedulerID SchedulerID, depth int)

	// RecordSchedulerCount records the number of live schedulers.
	RecordSchedulerCount(live int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskSpawned is a no-op.
func (m *NilMetrics) RecordTaskSpawned(schedulerID SchedulerID) {}

// RecordTaskExited is a no-op.
func (m *NilMetrics) RecordTaskExited(schedulerID SchedulerID, status int, duration time.Duration) {}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(schedulerID SchedulerID, panicInfo any) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(schedulerID SchedulerID, depth int) {}

// RecordSchedulerCount is a no-op.
func (m *NilMetrics) RecordSchedulerCount(live int) {}

// =============================================================================
// KernelOptions: Configuration for Kernel construction
// =============================================================================

// KernelOptions holds optional collaborators for a Kernel.
// All handlers are optional; if not provided, default implementations will be used.
type KernelOptions struct {
	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records runtime execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// Logger is the kernel module logger. Defaults to ModuleLogger("kernel").
	Logger Logger
}

// DefaultKernelOptions returns options with default handlers.
func DefaultKernelOptions() *KernelOptions {
	return &KernelOptions{
		PanicHandler: &DefaultPanicHandler{},
		Metrics:      &NilMetrics{},
		Logger:       ModuleLogger("kernel"),
	}
}
