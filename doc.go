// Package taskrt is a process-embedded runtime that multiplexes lightweight
// tasks onto a small number of OS-thread-backed schedulers, coordinated by a
// single process-wide kernel.
//
// # Quick Start
//
// Hand the runtime your main routine and let it drive the process:
//
//	func main() {
//		os.Exit(taskrt.Start(func(ctx context.Context) int {
//			// Your program, running as the main task.
//			return 0
//		}, os.Args[1:], nil))
//	}
//
// # Key Concepts
//
// Kernel: the process-wide owner of all schedulers and shared runtime
// services (configuration, entropy, exit code). Kernel.Run blocks until every
// scheduler has drained.
//
// Scheduler: a cooperative executor bound to one OS thread for its whole
// lifetime. It owns a FIFO run-queue of tasks; a task, once started, runs
// until its entry closure returns. Tasks never migrate between schedulers.
//
// Task: the schedulable unit. Created on a scheduler, started exactly once,
// then owned by the scheduler until it exits. The first task on the main
// scheduler is the main task; its exit status becomes the process exit code
// unless a task overrides it with Kernel.SetExitCode.
//
// Scheduler affinity: code running on a scheduler thread can recover "which
// scheduler is driving me" through core.CurrentScheduler without threading a
// reference down the call stack. On non-scheduler threads the lookup reports
// no scheduler.
//
// # Error Model
//
// Bootstrap faults and lifecycle misuse (starting a task twice, creating a
// task on a terminated scheduler) are fatal: the runtime prints a diagnostic,
// runs registered cleanup hooks, and exits with the reserved code 101.
// Ordinary task failures, including panics in entry closures, stay local to
// that task's exit status.
package taskrt
