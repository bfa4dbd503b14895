package core

import (
	"sync"

	"github.com/eapache/queue"
)

// workQueue is a mutex-guarded FIFO used as the ready queue of a Loop and as
// the job queue of a WorkerPool. The backing store is a ring-buffer deque, so
// push and pop are amortized O(1) and popped slots hold no references.
type workQueue[T any] struct {
	mu sync.Mutex
	q  *queue.Queue
}

func newWorkQueue[T any]() *workQueue[T] {
	return &workQueue[T]{q: queue.New()}
}

func (w *workQueue[T]) push(item T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.q.Add(item)
}

func (w *workQueue[T]) pop() (T, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var zero T
	if w.q.Length() == 0 {
		return zero, false
	}
	return w.q.Remove().(T), true
}

func (w *workQueue[T]) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.q.Length()
}

// clear drops all queued items and releases their references.
func (w *workQueue[T]) clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.q = queue.New()
}
