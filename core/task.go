package core

import (
	"context"
	"sync"
	"sync/atomic"
)

// TaskID identifies a task for the life of the kernel. IDs are never reused.
type TaskID uint64

// EntryFunc is a task's entry closure. The return value becomes the task's
// exit status; the context carries the owning scheduler and kernel so code
// deep in the call stack can recover them without parameter threading.
type EntryFunc func(ctx context.Context) int

// TaskState is a task's lifecycle state. Transitions only move forward:
// Created -> Running -> Exited.
type TaskState int32

const (
	// TaskCreated: allocated on a scheduler, not yet runnable.
	TaskCreated TaskState = iota

	// TaskRunning: Start was called; the owning scheduler controls the task.
	TaskRunning

	// TaskExited: terminal. The entry closure returned or the task was
	// terminated by a fault; the scheduler reaps it from here.
	TaskExited
)

func (s TaskState) String() string {
	switch s {
	case TaskCreated:
		return "created"
	case TaskRunning:
		return "running"
	case TaskExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Task is the schedulable unit of work. It is created by a Scheduler, started
// exactly once by its creator, and from then on owned exclusively by the
// scheduler's run loop until it exits and is reaped.
type Task struct {
	id     TaskID
	name   string
	parent TaskID // 0 = no parent; diagnostics only, never a lifetime edge
	sched  *Scheduler

	// main marks the first task created on the main scheduler; its exit
	// status becomes the process exit code unless a task overrides it.
	main bool

	state      atomic.Int32
	entry      EntryFunc
	exitStatus atomic.Int32

	randOnce sync.Once
	rand     *Generator
}

// ID returns the task's unique id.
func (t *Task) ID() TaskID { return t.id }

// Name returns the task's debug label.
func (t *Task) Name() string { return t.name }

// ParentID returns the id of the task that created this one, or 0 for the
// main task. The relation is weak: the parent may already have exited, and
// resolving it is only ever a diagnostic lookup.
func (t *Task) ParentID() TaskID { return t.parent }

// SchedulerID returns the id of the scheduler that owns this task.
func (t *Task) SchedulerID() SchedulerID { return t.sched.ID() }

// State returns the task's current lifecycle state.
func (t *Task) State() TaskState {
	return TaskState(t.state.Load())
}

// IsMain reports whether this is the process's main task.
func (t *Task) IsMain() bool { return t.main }

// Start binds the entry closure, transitions the task to Running, and hands
// it to the owning scheduler's run queue.
//
// After Start returns, control has passed irrevocably to the scheduler: the
// creator must not use its handle for further lifecycle mutation. Calling
// Start twice, or on a task that is not in Created state, is a lifecycle-
// misuse fault and terminates the process.
func (t *Task) Start(entry EntryFunc) {
	if entry == nil {
		Fatalf("task %q (id %d): Start with nil entry", t.name, t.id)
		return
	}
	if !t.state.CompareAndSwap(int32(TaskCreated), int32(TaskRunning)) {
		Fatalf("task %q (id %d): Start on task in state %s", t.name, t.id, t.State())
		return
	}

	// The enqueue publishes t.entry to the scheduler thread; the run-queue
	// mutex orders the write before the loop's read.
	t.entry = entry
	t.sched.enqueue(t)
}

// ExitStatus returns the task's exit status. Only meaningful once State
// reports TaskExited.
func (t *Task) ExitStatus() int {
	return int(t.exitStatus.Load())
}

// Rand returns the task's private random generator, seeding it from the
// kernel's RandomSource on first use. The generator is exclusively owned by
// this task and must only be used from its entry closure.
func (t *Task) Rand() *Generator {
	t.randOnce.Do(func() {
		t.rand = t.sched.kernel.RandomSource().NewGenerator()
	})
	return t.rand
}

// invoke runs the entry closure, absorbing a panic as exit status 1. Called
// only from the owning scheduler's thread.
func (t *Task) invoke(ctx context.Context) (status int) {
	defer func() {
		if r := recover(); r != nil {
			t.sched.handleTaskPanic(ctx, t, r)
			status = 1
		}
	}()
	return t.entry(ctx)
}

// =============================================================================
// Context helpers
// =============================================================================

type taskKeyType struct{}
type schedulerKeyType struct{}
type kernelKeyType struct{}

var (
	taskKey      taskKeyType
	schedulerKey schedulerKeyType
	kernelKey    kernelKeyType
)

// TaskFromContext returns the task the context belongs to, or nil when the
// context did not originate from a scheduler run loop.
func TaskFromContext(ctx context.Context) *Task {
	if v := ctx.Value(taskKey); v != nil {
		return v.(*Task)
	}
	return nil
}

// SchedulerFromContext returns the scheduler driving the current task, or nil.
func SchedulerFromContext(ctx context.Context) *Scheduler {
	if v := ctx.Value(schedulerKey); v != nil {
		return v.(*Scheduler)
	}
	return nil
}

// KernelFromContext returns the kernel owning the current scheduler, or nil.
func KernelFromContext(ctx context.Context) *Kernel {
	if v := ctx.Value(kernelKey); v != nil {
		return v.(*Kernel)
	}
	return nil
}
