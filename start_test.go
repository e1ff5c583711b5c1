package taskrt

import (
	"context"
	"testing"

	"github.com/taskrt/taskrt/core"
)

func quietEnv(t *testing.T) {
	t.Helper()
	t.Setenv(core.EnvLogSpec, "off")
	t.Setenv(core.EnvThreads, "")
	t.Setenv(core.EnvSeed, "")
	t.Setenv(core.EnvConfigFile, "")
}

// TestStart_ReturnsMainStatus tests the whole entry sequence
// Main test items:
// 1. Start runs the main routine as a task and returns its exit status
// 2. Remaining arguments and static metadata reach the hosted program
func TestStart_ReturnsMainStatus(t *testing.T) {
	quietEnv(t)

	meta := &StaticMetadata{Modules: []string{"kernel", "scheduler"}}
	var sawArgs []string

	code := Start(func(ctx context.Context) int {
		k := KernelFromContext(ctx)
		sawArgs = k.Config().Args
		if got := core.GCMetadata(); got != meta {
			t.Error("static metadata table was not recorded before the main task ran")
		}
		return 42
	}, []string{"--log=off", "input.dat"}, meta)

	if code != 42 {
		t.Errorf("Start() = %d, want 42", code)
	}
	if len(sawArgs) != 1 || sawArgs[0] != "input.dat" {
		t.Errorf("hosted args = %v, want [input.dat]", sawArgs)
	}
}

// TestStart_SpawnedWork tests that Start waits for the whole task tree
// Main test items:
// 1. Start returns only after tasks on extra schedulers have finished
// 2. An explicit SetExitCode overrides the main task status
func TestStart_SpawnedWork(t *testing.T) {
	quietEnv(t)

	done := make(chan struct{}, 3)
	code := Start(func(ctx context.Context) int {
		k := KernelFromContext(ctx)
		self := TaskFromContext(ctx)

		id := k.CreateScheduler()
		other, _ := k.SchedulerByID(id)
		for i := 0; i < 3; i++ {
			other.CreateTask(self, "worker").Start(func(ctx context.Context) int {
				done <- struct{}{}
				return 0
			})
		}
		k.SetExitCode(9)
		return 0
	}, nil, nil)

	if code != 9 {
		t.Errorf("Start() = %d, want the explicit exit code 9", code)
	}
	if len(done) != 3 {
		t.Errorf("%d workers finished before Start returned, want 3", len(done))
	}
}
