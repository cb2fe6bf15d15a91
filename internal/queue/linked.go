package queue

import (
	"sync"
	"sync/atomic"
)

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Linked is the two-lock queue of Michael and Scott: producers serialize on the
// tail lock, consumers on the head lock, so a push never waits behind a pop.
// head always points at a dummy node; the first real item is head.next.
//
// Consumers block on a condition bound to the head lock. Producers signal it
// while holding that lock, which closes the window between a consumer's
// emptiness check and its Wait.
type Linked[T any] struct {
	headMu   sync.Mutex
	notEmpty *sync.Cond
	head     *node[T]

	tailMu sync.Mutex
	tail   *node[T]

	closed atomic.Bool
	size   atomic.Int64
}

// NewLinked creates an empty Linked queue.
func NewLinked[T any]() *Linked[T] {
	dummy := &node[T]{}
	q := &Linked[T]{
		head: dummy,
		tail: dummy,
	}
	q.notEmpty = sync.NewCond(&q.headMu)
	return q
}

// Push appends v and wakes one waiting consumer.
func (q *Linked[T]) Push(v T) error {
	q.tailMu.Lock()
	if q.closed.Load() {
		q.tailMu.Unlock()
		return ErrQueueClosed
	}
	q.link(v)
	q.tailMu.Unlock()

	q.headMu.Lock()
	q.notEmpty.Signal()
	q.headMu.Unlock()
	return nil
}

// Pop blocks until an item is available or the queue is sealed and empty.
func (q *Linked[T]) Pop() (T, bool) {
	q.headMu.Lock()
	defer q.headMu.Unlock()

	var next *node[T]
	for {
		// closed is read before next: once closed is observed every item
		// appended by Close is already linked.
		closed := q.closed.Load()
		next = q.head.next.Load()
		if next != nil {
			break
		}
		if closed {
			var zero T
			return zero, false
		}
		q.notEmpty.Wait()
	}

	v := next.value
	var zero T
	next.value = zero
	q.head = next
	q.size.Add(-1)
	return v, true
}

// Close appends tail and seals the queue, then wakes every consumer.
func (q *Linked[T]) Close(tail ...T) error {
	q.tailMu.Lock()
	if q.closed.Load() {
		q.tailMu.Unlock()
		return ErrQueueClosed
	}
	for _, v := range tail {
		q.link(v)
	}
	q.closed.Store(true)
	q.tailMu.Unlock()

	q.headMu.Lock()
	q.notEmpty.Broadcast()
	q.headMu.Unlock()
	return nil
}

// Len returns the number of queued items.
func (q *Linked[T]) Len() int {
	return int(max(q.size.Load(), 0))
}

// link must be called with tailMu held.
func (q *Linked[T]) link(v T) {
	n := &node[T]{value: v}
	q.size.Add(1)
	q.tail.next.Store(n)
	q.tail = n
}
