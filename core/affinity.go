package core

import (
	"sync"

	"github.com/petermattis/goid"
)

// Thread-local scheduler affinity.
//
// Each scheduler loop runs on one goroutine locked to one OS thread for the
// scheduler's whole lifetime, so the goroutine id is a stable stand-in for a
// thread-local storage key. The slot is written exactly once, by the owning
// thread when its loop starts, and removed when the scheduler terminates.
// Reads from threads that never registered yield "no scheduler", which is how
// off-scheduler use of runtime APIs is detected.
var schedulerSlots sync.Map // goroutine id (int64) -> *Scheduler

// CurrentScheduler returns the scheduler bound to the calling thread.
// The second return is false on threads that are not scheduler threads.
func CurrentScheduler() (*Scheduler, bool) {
	v, ok := schedulerSlots.Load(goid.Get())
	if !ok {
		return nil, false
	}
	return v.(*Scheduler), true
}

// MustCurrentScheduler returns the scheduler bound to the calling thread, or
// terminates the process: calling a scheduler-affine runtime API from a
// non-scheduler thread is a lifecycle-misuse fault.
func MustCurrentScheduler() *Scheduler {
	s, ok := CurrentScheduler()
	if !ok {
		Fatalf("scheduler affinity: runtime API called from a non-scheduler thread")
		return nil
	}
	return s
}

// registerCurrentThread installs the calling thread's affinity slot. Called
// once by the scheduler loop after it locks its OS thread; registering a
// thread twice is a lifecycle-misuse fault.
func registerCurrentThread(s *Scheduler) {
	gid := goid.Get()
	if _, loaded := schedulerSlots.LoadOrStore(gid, s); loaded {
		Fatalf("scheduler affinity: thread already bound to a scheduler (scheduler %d)", s.ID())
	}
}

// unregisterCurrentThread clears the calling thread's affinity slot when its
// scheduler terminates, so the slot can never go stale.
func unregisterCurrentThread() {
	schedulerSlots.Delete(goid.Get())
}
