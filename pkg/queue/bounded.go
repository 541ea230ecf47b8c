package queue

import (
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the capacity used when none is given.
const DefaultCapacity = 100

// BoundedQueue is a blocking FIFO with a fixed capacity. Any number of
// producers and consumers may use it concurrently.
//
// Push hands ownership of the item to the queue; the caller must not
// touch it afterwards. Pop hands exclusive ownership to the caller.
type BoundedQueue[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	buf  []T
	head int
	size int

	// mirror of size for Len; never used for synchronization
	snapshot atomic.Int64
}

// New creates a queue holding at most capacity items. A capacity below
// one falls back to DefaultCapacity.
func New[T any](capacity int) *BoundedQueue[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	q := &BoundedQueue[T]{buf: make([]T, capacity)}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends item to the tail, blocking while the queue is full.
func (q *BoundedQueue[T]) Push(item T) {
	q.mu.Lock()
	for q.size == len(q.buf) {
		q.notFull.Wait()
	}

	q.buf[(q.head+q.size)%len(q.buf)] = item
	q.size++
	q.snapshot.Store(int64(q.size))
	q.mu.Unlock()

	q.notEmpty.Signal()
}

// Pop removes and returns the head, blocking while the queue is empty.
func (q *BoundedQueue[T]) Pop() T {
	q.mu.Lock()
	for q.size == 0 {
		q.notEmpty.Wait()
	}

	var zero T
	item := q.buf[q.head]
	q.buf[q.head] = zero // drop the queue's reference
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	q.snapshot.Store(int64(q.size))
	q.mu.Unlock()

	q.notFull.Signal()
	return item
}

// Len is a best-effort snapshot for diagnostics only.
func (q *BoundedQueue[T]) Len() int {
	return int(q.snapshot.Load())
}

// Cap returns the fixed capacity.
func (q *BoundedQueue[T]) Cap() int {
	return len(q.buf)
}
