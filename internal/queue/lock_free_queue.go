package queue

import (
	"sync/atomic"
	"unsafe"
)

// itemNode represents a node in the lock free queue.
type itemNode[T any] struct {
	value T
	next  unsafe.Pointer
}

// lockFreeQueue is a lock-free, concurrent queue implementation based on the
// Michael-Scott algorithm. It is safe for multiple producers and consumers.
//
// It implements the Queue interface.
type lockFreeQueue[T any] struct {
	head   unsafe.Pointer
	tail   unsafe.Pointer
	length atomic.Int32
}

// NewLockFreeQueue creates a new lock-free queue and returns it as a Queue
// interface.
func NewLockFreeQueue[T any]() Queue[T] {
	n := unsafe.Pointer(&itemNode[T]{})
	return &lockFreeQueue[T]{head: n, tail: n}
}

// Reset empties the queue. It is not atomic with respect to concurrent
// Enqueue or Dequeue calls.
func (q *lockFreeQueue[T]) Reset() {
	n := unsafe.Pointer(&itemNode[T]{})
	q.head = n
	q.tail = n
	q.length.Store(0)
}

// Enqueue adds an item to the tail of the queue.
func (q *lockFreeQueue[T]) Enqueue(item T) {
	n := &itemNode[T]{value: item}
retry:
	tail := loadNode[T](&q.tail)
	next := loadNode[T](&tail.next)
	// Are tail and next consistent?
	if tail == loadNode[T](&q.tail) {
		if next == nil {
			// Try to link node at the end of the linked list.
			if casNode(&tail.next, next, n) { // enqueue is done.
				// Try to swing tail to the inserted node.
				casNode(&q.tail, tail, n)
				q.length.Add(1)
				return
			}
		} else { // tail was not pointing to the last node
			// Try to swing tail to the next node.
			casNode(&q.tail, tail, next)
		}
	}

	goto retry
}

// Dequeue removes and returns the item at the head of the queue.
func (q *lockFreeQueue[T]) Dequeue() (T, bool) {
	var zero T
retry:
	head := loadNode[T](&q.head)
	tail := loadNode[T](&q.tail)
	next := loadNode[T](&head.next)

	// Are head, tail, and next consistent?
	if head == loadNode[T](&q.head) {
		// Is queue empty or tail falling behind?
		if head == tail {
			// Is queue empty?
			if next == nil {
				return zero, false
			}
			casNode(&q.tail, tail, next) // tail is falling behind, try to advance it.
		} else {
			// Read value before CAS, otherwise another dequeue might free the next node.
			data := next.value
			if casNode(&q.head, head, next) { // dequeue is done, return value.
				q.length.Add(-1)
				return data, true
			}
		}
	}

	goto retry
}

// Peek returns the item at the head of the queue without removing it.
func (q *lockFreeQueue[T]) Peek() (T, bool) {
	var zero T
retry:
	head := loadNode[T](&q.head)
	tail := loadNode[T](&q.tail)
	next := loadNode[T](&head.next)

	// Are head, tail, and next consistent?
	if head == loadNode[T](&q.head) {
		// Is queue empty or tail falling behind?
		if head != tail {
			return next.value, true
		}

		// Is queue empty?
		if next == nil {
			return zero, false
		}
		casNode(&q.tail, tail, next) // tail is falling behind, try to advance it.
	}

	goto retry
}

// IsEmpty returns true if the queue is empty, false otherwise.
func (q *lockFreeQueue[T]) IsEmpty() bool {
	return q.length.Load() == 0
}

// Length returns the number of items in the queue.
func (q *lockFreeQueue[T]) Length() int {
	return int(q.length.Load())
}

// loadNode atomically loads a node from a given pointer.
func loadNode[T any](p *unsafe.Pointer) *itemNode[T] {
	return (*itemNode[T])(atomic.LoadPointer(p))
}

// casNode performs an atomic compare-and-swap operation on a node pointer.
func casNode[T any](p *unsafe.Pointer, oldItem, newItem *itemNode[T]) bool {
	return atomic.CompareAndSwapPointer(p, unsafe.Pointer(oldItem), unsafe.Pointer(newItem))
}
