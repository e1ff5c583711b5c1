package taskrt

import (
	"github.com/taskrt/taskrt/core"
)

// Start is the runtime entry point. Given the platform-supplied main routine,
// argument vector, and static metadata table, it loads the runtime
// configuration, performs process-wide setup, runs the main task to
// completion, and returns the process exit code once every scheduler has
// drained.
//
// The sequence mirrors the process entry contract: load config, record the
// static metadata, apply log settings, construct the kernel (which creates
// the main scheduler), create and start the main task, then block in
// Kernel.Run. Configuration or bootstrap failure terminates the process with
// the reserved fatal exit code; it never returns an ordinary status.
//
// Typical use from a host main:
//
//	func main() {
//		os.Exit(taskrt.Start(run, os.Args[1:], &taskrt.StaticMetadata{...}))
//	}
func Start(entry EntryFunc, args []string, metadata *StaticMetadata) int {
	return StartWithOptions(entry, args, metadata, nil)
}

// StartWithOptions is Start with explicit kernel collaborators (metrics,
// panic handler), for hosts that wire observability.
func StartWithOptions(entry EntryFunc, args []string, metadata *StaticMetadata, opts *KernelOptions) int {
	if entry == nil {
		core.Fatalf("runtime start: nil main routine")
		return FatalExitCode
	}

	cfg, err := core.LoadConfig(args)
	if err != nil {
		core.Fatalf("runtime start: %v", err)
		return FatalExitCode
	}

	core.UpdateGCMetadata(metadata)

	kernel := core.NewKernelWithOptions(cfg, opts)

	sched, ok := kernel.SchedulerByID(kernel.MainSchedulerID())
	if !ok {
		core.Fatalf("runtime start: main scheduler missing")
		return FatalExitCode
	}

	task := sched.CreateTask(nil, "main")
	task.Start(entry)
	// From here the task lifecycle belongs to the scheduler; the handle is
	// no longer valid for lifecycle control.

	return kernel.Run()
}
