package core

import (
	"context"
	"runtime"
	"testing"
	"time"
)

// captureFatal intercepts the process exit primitive. The replacement records
// the exit code and parks the calling goroutine with runtime.Goexit, which is
// the closest test-safe analog to the real no-return exit.
func captureFatal(t *testing.T) <-chan int {
	t.Helper()
	ch := make(chan int, 4)
	prev := exitProcess
	exitProcess = func(code int) {
		ch <- code
		runtime.Goexit()
	}
	t.Cleanup(func() {
		exitProcess = prev
		resetFatalHooks()
	})
	return ch
}

func waitFatal(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case code := <-ch:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fatal fault, got none")
		return 0
	}
}

// TestTask_Lifecycle tests the basic task state machine
// Main test items:
// 1. A created task reports Created and carries its name and scheduler id
// 2. After Start and execution the state is Exited with the entry's status
// 3. Parent back-reference is recorded by id only
func TestTask_Lifecycle(t *testing.T) {
	k := newTestKernel(t)
	main, _ := k.MainScheduler()

	parent := main.CreateTask(nil, "main")
	if parent.State() != TaskCreated {
		t.Errorf("state = %s, want created", parent.State())
	}
	if parent.Name() != "main" {
		t.Errorf("name = %q, want main", parent.Name())
	}
	if parent.SchedulerID() != k.MainSchedulerID() {
		t.Errorf("scheduler id = %d, want %d", parent.SchedulerID(), k.MainSchedulerID())
	}
	if parent.ParentID() != 0 {
		t.Errorf("main task parent = %d, want 0", parent.ParentID())
	}

	var child *Task
	parent.Start(func(ctx context.Context) int {
		self := TaskFromContext(ctx)
		if self.State() != TaskRunning {
			t.Errorf("state inside entry = %s, want running", self.State())
		}
		child = SchedulerFromContext(ctx).CreateTask(self, "child")
		child.Start(func(ctx context.Context) int { return 5 })
		return 3
	})

	if code := waitExit(t, runKernel(k)); code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}

	if parent.State() != TaskExited {
		t.Errorf("parent state after run = %s, want exited", parent.State())
	}
	if parent.ExitStatus() != 3 {
		t.Errorf("parent exit status = %d, want 3", parent.ExitStatus())
	}
	if child.State() != TaskExited || child.ExitStatus() != 5 {
		t.Errorf("child state/status = %s/%d, want exited/5", child.State(), child.ExitStatus())
	}
	if child.ParentID() != parent.ID() {
		t.Errorf("child parent id = %d, want %d", child.ParentID(), parent.ID())
	}
}

// TestTask_DoubleStartIsFatal tests the ownership-transfer invariant
// Main test items:
// 1. Calling Start a second time is a fatal fault with the reserved code
// 2. The task's state never reverts from Running
func TestTask_DoubleStartIsFatal(t *testing.T) {
	fatal := captureFatal(t)

	k := newTestKernel(t)
	main, _ := k.MainScheduler()

	task := main.CreateTask(nil, "once")
	entered := make(chan struct{})
	task.Start(func(ctx context.Context) int {
		close(entered)
		return 0
	})
	<-entered

	// Second Start from a fresh goroutine so Goexit doesn't take the test down.
	go task.Start(func(ctx context.Context) int { return 0 })

	if code := waitFatal(t, fatal); code != FatalExitCode {
		t.Errorf("fatal exit code = %d, want %d", code, FatalExitCode)
	}
	if task.State() == TaskCreated {
		t.Error("task state reverted to created after double Start")
	}
}

// TestTask_SelfDoubleStartIsFatal tests misuse from inside the entry closure
// Main test items:
// 1. A task restarting itself faults with the reserved code, not its own status
func TestTask_SelfDoubleStartIsFatal(t *testing.T) {
	fatal := captureFatal(t)

	k := newTestKernel(t)
	main, _ := k.MainScheduler()

	task := main.CreateTask(nil, "self-restart")
	task.Start(func(ctx context.Context) int {
		TaskFromContext(ctx).Start(func(ctx context.Context) int { return 0 })
		return 42
	})

	if code := waitFatal(t, fatal); code != FatalExitCode {
		t.Errorf("fatal exit code = %d, want %d (not the task's 42)", code, FatalExitCode)
	}
}

// TestTask_NilEntryIsFatal tests Start argument validation
// Main test items:
// 1. Start(nil) is a fatal fault
func TestTask_NilEntryIsFatal(t *testing.T) {
	fatal := captureFatal(t)

	k := newTestKernel(t)
	main, _ := k.MainScheduler()
	task := main.CreateTask(nil, "nil-entry")

	go task.Start(nil)

	if code := waitFatal(t, fatal); code != FatalExitCode {
		t.Errorf("fatal exit code = %d, want %d", code, FatalExitCode)
	}
}

// TestTask_PanicBecomesExitStatus tests ordinary task failure handling
// Main test items:
// 1. A panicking entry closure is absorbed as exit status 1
// 2. The process and sibling tasks keep running
// 3. The panic handler observes the panic value
func TestTask_PanicBecomesExitStatus(t *testing.T) {
	k := newTestKernel(t)
	main, _ := k.MainScheduler()

	panicked := make(chan any, 1)
	k.panicHandler = panicHandlerFunc(func(ctx context.Context, schedulerID SchedulerID, taskName string, panicInfo any, stack []byte) {
		panicked <- panicInfo
	})

	task := main.CreateTask(nil, "main")
	var bad, good *Task
	task.Start(func(ctx context.Context) int {
		sched := SchedulerFromContext(ctx)
		self := TaskFromContext(ctx)

		bad = sched.CreateTask(self, "explodes")
		bad.Start(func(ctx context.Context) int {
			panic("boom")
		})

		good = sched.CreateTask(self, "survives")
		good.Start(func(ctx context.Context) int { return 0 })
		return 0
	})

	if code := waitExit(t, runKernel(k)); code != 0 {
		t.Errorf("exit code = %d, want 0 (panic is local to its task)", code)
	}

	if bad.State() != TaskExited || bad.ExitStatus() != 1 {
		t.Errorf("panicked task state/status = %s/%d, want exited/1", bad.State(), bad.ExitStatus())
	}
	if good.ExitStatus() != 0 {
		t.Errorf("sibling task status = %d, want 0", good.ExitStatus())
	}

	select {
	case info := <-panicked:
		if info != "boom" {
			t.Errorf("panic info = %v, want boom", info)
		}
	default:
		t.Error("panic handler was not invoked")
	}
}

// TestTask_MainPanicSetsExitCode tests main task failure
// Main test items:
// 1. A panic in the main task yields a non-zero process exit code
func TestTask_MainPanicSetsExitCode(t *testing.T) {
	k := newTestKernel(t)
	main, _ := k.MainScheduler()

	task := main.CreateTask(nil, "main")
	task.Start(func(ctx context.Context) int {
		panic("main down")
	})

	if code := waitExit(t, runKernel(k)); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

// panicHandlerFunc adapts a function to the PanicHandler interface.
type panicHandlerFunc func(ctx context.Context, schedulerID SchedulerID, taskName string, panicInfo any, stack []byte)

func (f panicHandlerFunc) HandlePanic(ctx context.Context, schedulerID SchedulerID, taskName string, panicInfo any, stack []byte) {
	f(ctx, schedulerID, taskName, panicInfo, stack)
}
