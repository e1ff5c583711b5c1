package core

import "sync"

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// runQueue is the FIFO queue of ready tasks owned by one scheduler.
// Newly-ready tasks are appended at the tail; the scheduler loop pops from
// the head, so tasks become eligible to run in enqueue order. Pushes may come
// from any thread (Start is not required to run on the owning thread), hence
// the mutex.
type runQueue struct {
	mu    sync.Mutex
	tasks []*Task
}

func newRunQueue() *runQueue {
	return &runQueue{
		tasks: make([]*Task, 0, defaultQueueCap),
	}
}

func (q *runQueue) push(t *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
}

func (q *runQueue) pop() (*Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}

	t := q.tasks[0]
	// Zero out the element in the underlying array to prevent memory leak
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	q.maybeCompactLocked()

	return t, true
}

// maybeCompactLocked reallocates the backing array when the live window has
// shrunk well below capacity, so a queue that once spiked does not pin the
// peak allocation forever.
func (q *runQueue) maybeCompactLocked() {
	n := len(q.tasks)
	c := cap(q.tasks)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.tasks = make([]*Task, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]*Task, n, newCap)
	copy(newSlice, q.tasks)
	q.tasks = newSlice
}

func (q *runQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// clear removes all queued tasks and releases their references.
func (q *runQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = make([]*Task, 0, defaultQueueCap)
}
