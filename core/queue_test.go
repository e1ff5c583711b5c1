package core

import (
	"sync"
	"testing"
)

// TestRunQueue_FIFO tests basic queue ordering
// Main test items:
// 1. pop returns tasks in push order
// 2. pop on an empty queue reports no task
func TestRunQueue_FIFO(t *testing.T) {
	q := newRunQueue()

	if _, ok := q.pop(); ok {
		t.Error("pop on empty queue returned a task")
	}

	tasks := []*Task{{name: "a"}, {name: "b"}, {name: "c"}}
	for _, task := range tasks {
		q.push(task)
	}
	if got := q.len(); got != 3 {
		t.Errorf("len() = %d, want 3", got)
	}

	for i, want := range tasks {
		got, ok := q.pop()
		if !ok || got != want {
			t.Errorf("pop %d = %v, want task %q", i, got, want.name)
		}
	}
	if got := q.len(); got != 0 {
		t.Errorf("len() after draining = %d, want 0", got)
	}
}

// TestRunQueue_Clear tests queue reset
// Main test items:
// 1. clear empties the queue and later pushes still work
func TestRunQueue_Clear(t *testing.T) {
	q := newRunQueue()
	q.push(&Task{name: "a"})
	q.push(&Task{name: "b"})

	q.clear()
	if got := q.len(); got != 0 {
		t.Errorf("len() after clear = %d, want 0", got)
	}

	q.push(&Task{name: "c"})
	got, ok := q.pop()
	if !ok || got.name != "c" {
		t.Errorf("pop after clear = %v, want task c", got)
	}
}

// TestRunQueue_Compaction tests backing-array shrinking
// Main test items:
// 1. After a spike drains, capacity falls back instead of pinning the peak
// 2. Remaining tasks survive compaction in order
func TestRunQueue_Compaction(t *testing.T) {
	q := newRunQueue()

	const spike = 256
	for i := 0; i < spike; i++ {
		q.push(&Task{id: TaskID(i)})
	}

	for i := 0; i < spike-4; i++ {
		got, ok := q.pop()
		if !ok || got.id != TaskID(i) {
			t.Fatalf("pop %d = %v, want id %d", i, got, i)
		}
	}

	q.mu.Lock()
	c := cap(q.tasks)
	q.mu.Unlock()
	if c >= spike {
		t.Errorf("capacity after drain = %d, want shrunk below the %d spike", c, spike)
	}

	for i := spike - 4; i < spike; i++ {
		got, ok := q.pop()
		if !ok || got.id != TaskID(i) {
			t.Errorf("pop %d = %v, want id %d", i, got, i)
		}
	}
}

// TestRunQueue_ConcurrentPush tests cross-thread pushes
// Main test items:
// 1. Concurrent pushes lose no tasks
func TestRunQueue_ConcurrentPush(t *testing.T) {
	q := newRunQueue()

	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				q.push(&Task{})
			}
		}()
	}
	wg.Wait()

	if got := q.len(); got != workers*perWorker {
		t.Errorf("len() = %d, want %d", got, workers*perWorker)
	}
}
