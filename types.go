package taskrt

import "github.com/taskrt/taskrt/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the taskrt package for most use cases.

// Kernel is the process-wide owner of all schedulers and runtime services
type Kernel = core.Kernel

// Scheduler is an OS-thread-bound cooperative task executor
type Scheduler = core.Scheduler

// SchedulerID identifies a scheduler for the life of the kernel
type SchedulerID = core.SchedulerID

// Task is the schedulable unit of work
type Task = core.Task

// TaskID identifies a task for the life of the kernel
type TaskID = core.TaskID

// TaskState is a task's lifecycle state (Created -> Running -> Exited)
type TaskState = core.TaskState

// EntryFunc is a task's entry closure; its return value is the exit status
type EntryFunc = core.EntryFunc

// RuntimeConfig is the immutable snapshot of environment-derived settings
type RuntimeConfig = core.RuntimeConfig

// StaticMetadata is the platform-supplied metadata table
type StaticMetadata = core.StaticMetadata

// RandomSource is the kernel-owned entropy capability
type RandomSource = core.RandomSource

// Generator is a per-task pseudo-random generator
type Generator = core.Generator

// Logger is the runtime's structured logging interface
type Logger = core.Logger

// KernelOptions holds optional kernel collaborators (metrics, panic handler)
type KernelOptions = core.KernelOptions

// Task state constants
const (
	TaskCreated TaskState = core.TaskCreated
	TaskRunning TaskState = core.TaskRunning
	TaskExited  TaskState = core.TaskExited
)

// FatalExitCode is the reserved exit code for unrecoverable runtime faults
const FatalExitCode = core.FatalExitCode

// Convenience re-exports
var (
	LoadConfig           = core.LoadConfig
	NewKernel            = core.NewKernel
	NewKernelWithOptions = core.NewKernelWithOptions
	DefaultKernelOptions = core.DefaultKernelOptions
	CurrentScheduler     = core.CurrentScheduler
	SchedulerFromContext = core.SchedulerFromContext
	KernelFromContext    = core.KernelFromContext
	TaskFromContext      = core.TaskFromContext
	ModuleLogger         = core.ModuleLogger
	AtFatal              = core.AtFatal
)
