package core

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// SchedulerID is the opaque identifier the kernel assigns to a scheduler.
// IDs are stable for the scheduler's lifetime and never reused while the
// kernel is live. The zero value is never a valid id.
type SchedulerID uint64

// Scheduler owns a FIFO run-queue of tasks and executes them cooperatively
// on one dedicated OS thread. A started task runs until its entry closure
// returns; the scheduler never preempts it.
//
// Schedulers are created through Kernel.CreateScheduler and owned exclusively
// by the kernel. A scheduler terminates once every task it ever created has
// exited (or, for a scheduler that never hosted a task, once Shutdown marks
// it closed); the kernel then reclaims it.
type Scheduler struct {
	id     SchedulerID
	kernel *Kernel

	queue *runQueue

	// signal wakes the loop when a task becomes runnable or the scheduler
	// is closed. Capacity 1: a pending wakeup is never lost, duplicates
	// collapse.
	signal chan struct{}

	// mu guards the lifecycle fields below. The run-queue has its own lock.
	mu       sync.Mutex
	live     int  // created-but-not-yet-exited tasks
	everHad  bool // at least one task was ever created here
	closed   bool // no further task creation permitted (Shutdown)
	draining bool // termination decided; creation now fatal

	terminated chan struct{}

	log Logger
}

func newScheduler(k *Kernel, id SchedulerID) *Scheduler {
	return &Scheduler{
		id:         id,
		kernel:     k,
		queue:      newRunQueue(),
		signal:     make(chan struct{}, 1),
		terminated: make(chan struct{}),
		log:        ModuleLogger("scheduler"),
	}
}

// ID returns the kernel-assigned scheduler id.
func (s *Scheduler) ID() SchedulerID { return s.id }

// Kernel returns the owning kernel.
func (s *Scheduler) Kernel() *Kernel { return s.kernel }

// CreateTask allocates a new task bound to this scheduler. The task is not
// yet runnable; the creator must call Start on it exactly once.
//
// CreateTask may be called from any thread. Creating a task on a scheduler
// that is draining or already terminated is a lifecycle-misuse fault.
func (s *Scheduler) CreateTask(parent *Task, name string) *Task {
	s.mu.Lock()
	if s.draining || s.closed {
		s.mu.Unlock()
		Fatalf("scheduler %d: CreateTask(%q) on a terminating scheduler", s.id, name)
		return nil
	}
	s.live++
	s.everHad = true
	s.mu.Unlock()

	t := &Task{
		id:    s.kernel.nextTaskID(),
		name:  name,
		sched: s,
	}
	if parent != nil {
		t.parent = parent.id
	}
	s.kernel.adoptTask(t)
	s.kernel.metrics.RecordTaskSpawned(s.id)

	s.log.Debug("task created", F("scheduler", s.id), F("task", name), F("id", t.id))
	return t
}

// Shutdown marks the scheduler as accepting no further tasks. Queued and
// running tasks still execute; once the outstanding-task count reaches zero
// the scheduler terminates. This is the only way to retire a scheduler that
// never hosted a task.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wake()
}

// enqueue makes a started task eligible to run. Called from Task.Start.
func (s *Scheduler) enqueue(t *Task) {
	s.queue.push(t)
	s.kernel.metrics.RecordQueueDepth(s.id, s.queue.len())
	s.wake()
}

func (s *Scheduler) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
		// A wakeup is already pending; the loop will observe the new state.
	}
}

// Terminated returns a channel closed when the scheduler has terminated.
func (s *Scheduler) Terminated() <-chan struct{} {
	return s.terminated
}

// run is the scheduler loop. It occupies one goroutine locked to its OS
// thread for the scheduler's whole lifetime, establishing the thread-local
// affinity slot before any task executes.
func (s *Scheduler) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	registerCurrentThread(s)
	defer unregisterCurrentThread()

	ctx := context.WithValue(context.Background(), schedulerKey, s)
	ctx = context.WithValue(ctx, kernelKey, s.kernel)

	s.log.Debug("scheduler thread started", F("scheduler", s.id))

	for {
		if t, ok := s.queue.pop(); ok {
			s.kernel.metrics.RecordQueueDepth(s.id, s.queue.len())
			s.runTask(ctx, t)
			continue
		}

		s.mu.Lock()
		if s.live == 0 && (s.everHad || s.closed) {
			// Draining: no live tasks and either the scheduler already did
			// its work or it was explicitly closed. Creation becomes fatal
			// from here on.
			s.draining = true
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()

		// Queue empty but tasks are outstanding (created and not yet
		// started, or about to be enqueued). Block until woken.
		<-s.signal
	}

	s.log.Debug("scheduler draining complete", F("scheduler", s.id))
	close(s.terminated)
	s.kernel.schedulerTerminated(s)
}

// runTask drives one task from Running to Exited and reaps it.
func (s *Scheduler) runTask(ctx context.Context, t *Task) {
	tctx := context.WithValue(ctx, taskKey, t)

	started := time.Now()
	status := t.invoke(tctx)

	t.exitStatus.Store(int32(status))
	t.state.Store(int32(TaskExited))

	if t.main {
		s.kernel.setMainExitCode(status)
	}
	s.kernel.metrics.RecordTaskExited(s.id, status, time.Since(started))
	s.log.Debug("task exited",
		F("scheduler", s.id), F("task", t.name), F("status", status))

	s.reap(t)
}

// reap decrements the outstanding-task count after a task exits. The loop
// rechecks the drain condition on its next iteration.
func (s *Scheduler) reap(t *Task) {
	s.mu.Lock()
	s.live--
	if s.live < 0 {
		n := s.live
		s.mu.Unlock()
		Fatalf("scheduler %d: task count underflow (%d)", s.id, n)
		return
	}
	s.mu.Unlock()
}

func (s *Scheduler) handleTaskPanic(ctx context.Context, t *Task, panicInfo any) {
	stack := make([]byte, 16<<10)
	stack = stack[:runtime.Stack(stack, false)]

	s.kernel.metrics.RecordTaskPanic(s.id, panicInfo)
	s.kernel.panicHandler.HandlePanic(ctx, s.id, t.name, panicInfo, stack)
}

// =============================================================================
// Stats snapshot
// =============================================================================

// SchedulerStats is a point-in-time snapshot of a scheduler's state.
type SchedulerStats struct {
	ID         SchedulerID
	Queued     int
	LiveTasks  int
	Terminated bool
}

// Stats returns a snapshot of the scheduler's current state.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	live := s.live
	draining := s.draining
	s.mu.Unlock()

	return SchedulerStats{
		ID:         s.id,
		Queued:     s.queue.len(),
		LiveTasks:  live,
		Terminated: draining,
	}
}
