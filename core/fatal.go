package core

import (
	"fmt"
	"os"
	"sync"
)

// FatalExitCode is the reserved process exit code for unrecoverable runtime
// faults. It is distinct from any ordinary task-supplied exit code so that
// callers can tell a runtime fault apart from a failing task.
const FatalExitCode = 101

// exitProcess terminates the process immediately. It is a variable so tests
// can intercept the fatal path; outside tests it is always os.Exit.
// Swap it before any scheduler is started, never concurrently.
var exitProcess func(code int) = os.Exit

var (
	fatalMu    sync.Mutex
	fatalHooks []func()
)

// AtFatal registers a cleanup hook that runs before the process exits on a
// fatal fault. Hooks run in LIFO order, after the diagnostic is printed.
// Typical use is flushing buffered diagnostics.
//
// Hooks must not post tasks or touch kernel state; the runtime may already be
// inconsistent when they run.
func AtFatal(hook func()) {
	if hook == nil {
		return
	}
	fatalMu.Lock()
	defer fatalMu.Unlock()
	fatalHooks = append(fatalHooks, hook)
}

// Fatalf reports an unrecoverable runtime fault and terminates the process
// with FatalExitCode.
//
// This is the dedicated abort path for bootstrap and lifecycle-misuse faults:
// print the diagnostic, run the registered cleanup hooks, then exit
// immediately. There is no stack unwinding and no reliance on deferred
// functions along the way; the rest of the process never observes the
// corrupted state.
func Fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal runtime error: "+format+"\n", args...)

	fatalMu.Lock()
	hooks := make([]func(), len(fatalHooks))
	copy(hooks, fatalHooks)
	fatalMu.Unlock()

	// LIFO, mirroring registration order of interrupt/cleanup handlers.
	for i := len(hooks) - 1; i >= 0; i-- {
		runFatalHook(hooks[i])
	}

	exitProcess(FatalExitCode)
}

// runFatalHook shields the abort path from a panicking hook. A hook failure
// must not prevent the process from exiting with the reserved code.
func runFatalHook(hook func()) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal cleanup hook panicked: %v\n", r)
		}
	}()
	hook()
}

// resetFatalHooks clears registered hooks. Test helper.
func resetFatalHooks() {
	fatalMu.Lock()
	defer fatalMu.Unlock()
	fatalHooks = nil
}
