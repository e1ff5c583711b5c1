package core

import (
	"sync"
	"sync/atomic"
)

// Kernel is the owner of all schedulers and shared runtime services for one
// runtime instance. A hosted process runs exactly one; it outlives every
// scheduler and every task it hosts.
//
// Construction performs the one-time process setup (log settings, fatal
// cleanup hook, random source) and creates the main scheduler. Run then
// blocks until every scheduler has terminated.
type Kernel struct {
	cfg  *RuntimeConfig
	rand *RandomSource

	log          Logger
	metrics      Metrics
	panicHandler PanicHandler

	// mu guards the scheduler table and the live-scheduler count; cond
	// signals Run when the count drops. Creation during Run is counted
	// because CreateScheduler increments under the same lock.
	mu         sync.Mutex
	cond       *sync.Cond
	schedulers map[SchedulerID]*Scheduler
	liveScheds int

	nextSchedID atomic.Uint64
	taskIDs     atomic.Uint64

	mainSchedID SchedulerID

	mainPicked atomic.Bool
	tasksTotal atomic.Uint64

	exitMu   sync.Mutex
	exitSet  bool
	exitCode int
}

// NewKernel constructs the kernel with default options.
func NewKernel(cfg *RuntimeConfig) *Kernel {
	return NewKernelWithOptions(cfg, DefaultKernelOptions())
}

// NewKernelWithOptions constructs the kernel, performs one-time process-wide
// setup, and creates and starts the main scheduler.
//
// There is no recoverable path for a failed bootstrap: any setup error
// terminates the process with the reserved fatal exit code.
func NewKernelWithOptions(cfg *RuntimeConfig, opts *KernelOptions) *Kernel {
	if cfg == nil {
		Fatalf("kernel bootstrap: nil runtime config")
		return nil
	}
	if opts == nil {
		opts = DefaultKernelOptions()
	}

	k := &Kernel{
		cfg:          cfg,
		log:          opts.Logger,
		metrics:      opts.Metrics,
		panicHandler: opts.PanicHandler,
		schedulers:   make(map[SchedulerID]*Scheduler),
	}
	k.cond = sync.NewCond(&k.mu)
	if k.log == nil {
		k.log = ModuleLogger("kernel")
	}
	if k.metrics == nil {
		k.metrics = &NilMetrics{}
	}
	if k.panicHandler == nil {
		k.panicHandler = &DefaultPanicHandler{}
	}

	var modules []string
	if meta := GCMetadata(); meta != nil {
		modules = meta.Modules
	}
	if err := ApplyLogSettings(modules, cfg.LogSpec); err != nil {
		Fatalf("kernel bootstrap: applying log settings: %v", err)
		return nil
	}

	seed, err := cfg.SeedBytes()
	if err != nil {
		Fatalf("kernel bootstrap: %v", err)
		return nil
	}
	if seed != nil {
		k.rand = NewFixedRandomSource(seed)
	} else {
		k.rand = NewRandomSource()
	}

	// Give interrupt handlers a chance to flush context about this run
	// before a fatal exit.
	AtFatal(func() {
		k.log.Error("runtime aborting", F("run_id", cfg.RunID))
	})

	k.mainSchedID = k.CreateScheduler()

	k.log.Info("kernel started",
		F("run_id", cfg.RunID),
		F("main_scheduler", k.mainSchedID),
		F("threads_hint", cfg.SchedulerThreads()),
	)
	return k
}

// Config returns the immutable runtime configuration.
func (k *Kernel) Config() *RuntimeConfig { return k.cfg }

// RandomSource returns the kernel-owned entropy source.
func (k *Kernel) RandomSource() *RandomSource { return k.rand }

// MainSchedulerID returns the id of the scheduler designated to host the
// process's first task. Constant for the kernel's lifetime.
func (k *Kernel) MainSchedulerID() SchedulerID { return k.mainSchedID }

// CreateScheduler creates a new scheduler on its own OS thread and returns
// its id. May be called from running tasks at any time, including while Run
// is waiting; ids are unique for the life of the kernel and never reused.
func (k *Kernel) CreateScheduler() SchedulerID {
	id := SchedulerID(k.nextSchedID.Add(1))
	s := newScheduler(k, id)

	k.mu.Lock()
	k.schedulers[id] = s
	k.liveScheds++
	live := k.liveScheds
	k.mu.Unlock()

	k.metrics.RecordSchedulerCount(live)
	go s.run()

	k.log.Debug("scheduler created", F("scheduler", id), F("live", live))
	return id
}

// SchedulerByID looks up a scheduler. The second return is false for unknown
// ids and for schedulers that have already terminated and been reclaimed.
// Safe to call concurrently from any thread.
func (k *Kernel) SchedulerByID(id SchedulerID) (*Scheduler, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.schedulers[id]
	return s, ok
}

// MainScheduler returns the main scheduler, which exists until it drains.
func (k *Kernel) MainScheduler() (*Scheduler, bool) {
	return k.SchedulerByID(k.mainSchedID)
}

// schedulerTerminated reclaims a drained scheduler. Called from the
// scheduler's own thread as its loop exits.
func (k *Kernel) schedulerTerminated(s *Scheduler) {
	k.mu.Lock()
	delete(k.schedulers, s.id)
	k.liveScheds--
	live := k.liveScheds
	k.mu.Unlock()

	k.metrics.RecordSchedulerCount(live)
	k.log.Debug("scheduler reclaimed", F("scheduler", s.id), F("live", live))
	k.cond.Broadcast()
}

// nextTaskID hands out process-unique task ids.
func (k *Kernel) nextTaskID() TaskID {
	k.tasksTotal.Add(1)
	return TaskID(k.taskIDs.Add(1))
}

// adoptTask marks the first task created on the main scheduler as the main
// task.
func (k *Kernel) adoptTask(t *Task) {
	if t.sched.id == k.mainSchedID && k.mainPicked.CompareAndSwap(false, true) {
		t.main = true
	}
}

// Run blocks the calling thread until every scheduler the kernel has ever
// created reaches termination, then returns the process exit code.
//
// Termination detection never assumes a static scheduler set: schedulers
// created by running tasks while Run is waiting are counted before their
// predecessors can signal, so Run cannot return early. Termination of one
// scheduler never delays detection of the others.
func (k *Kernel) Run() int {
	k.mu.Lock()
	for k.liveScheds > 0 {
		k.cond.Wait()
	}
	k.mu.Unlock()

	code := k.ExitCode()
	k.log.Info("all schedulers terminated", F("exit_code", code))
	return code
}

// SetExitCode sets the process exit code. Any task may call this; the last
// writer wins, overriding the main task's exit status.
func (k *Kernel) SetExitCode(code int) {
	k.exitMu.Lock()
	defer k.exitMu.Unlock()
	k.exitCode = code
	k.exitSet = true
}

// setMainExitCode records the main task's exit status as the default exit
// code. An explicit SetExitCode always takes precedence.
func (k *Kernel) setMainExitCode(status int) {
	k.exitMu.Lock()
	defer k.exitMu.Unlock()
	if k.exitSet {
		return
	}
	k.exitCode = status
}

// ExitCode returns the exit code recorded so far.
func (k *Kernel) ExitCode() int {
	k.exitMu.Lock()
	defer k.exitMu.Unlock()
	return k.exitCode
}

// =============================================================================
// Stats snapshot
// =============================================================================

// KernelStats is a point-in-time snapshot of kernel-wide state.
type KernelStats struct {
	LiveSchedulers int
	TasksSpawned   uint64
}

// Stats returns a snapshot of kernel-wide state.
func (k *Kernel) Stats() KernelStats {
	k.mu.Lock()
	live := k.liveScheds
	k.mu.Unlock()

	return KernelStats{
		LiveSchedulers: live,
		TasksSpawned:   k.tasksTotal.Load(),
	}
}

// Schedulers returns a snapshot of the currently live schedulers.
func (k *Kernel) Schedulers() []*Scheduler {
	k.mu.Lock()
	defer k.mu.Unlock()

	out := make([]*Scheduler, 0, len(k.schedulers))
	for _, s := range k.schedulers {
		out = append(out, s)
	}
	return out
}
