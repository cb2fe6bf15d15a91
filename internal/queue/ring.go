package queue

import "sync"

const defaultRingCapacity = 64

// Ring is an unbounded FIFO backed by a power-of-two ring buffer that doubles
// when full. One mutex guards all state; consumers wait on a condition bound to it.
type Ring[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	buf      []T
	head     int // index of the oldest item
	size     int
	closed   bool
}

// NewRing creates a Ring with room for capacity items before the first growth.
// A non-positive capacity uses a default.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = defaultRingCapacity
	}
	r := &Ring[T]{
		buf: make([]T, nextPowerOfTwo(capacity)),
	}
	r.notEmpty = sync.NewCond(&r.mu)
	return r
}

// Push appends v and wakes one waiting consumer.
func (r *Ring[T]) Push(v T) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrQueueClosed
	}
	r.put(v)
	r.mu.Unlock()

	r.notEmpty.Signal()
	return nil
}

// Pop blocks until an item is available or the queue is sealed and empty.
func (r *Ring[T]) Pop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for r.size == 0 {
		if r.closed {
			var zero T
			return zero, false
		}
		r.notEmpty.Wait()
	}

	v := r.buf[r.head]
	var zero T
	r.buf[r.head] = zero // drop the reference so the task can be collected
	r.head = (r.head + 1) & (len(r.buf) - 1)
	r.size--
	return v, true
}

// Close appends tail and seals the ring, then wakes every consumer.
func (r *Ring[T]) Close(tail ...T) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrQueueClosed
	}
	for _, v := range tail {
		r.put(v)
	}
	r.closed = true
	r.mu.Unlock()

	r.notEmpty.Broadcast()
	return nil
}

// Len returns the number of queued items.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// put must be called with mu held.
func (r *Ring[T]) put(v T) {
	if r.size == len(r.buf) {
		r.grow()
	}
	r.buf[(r.head+r.size)&(len(r.buf)-1)] = v
	r.size++
}

// grow doubles the buffer, unrolling the ring so head lands at index 0.
func (r *Ring[T]) grow() {
	next := make([]T, len(r.buf)*2)
	n := copy(next, r.buf[r.head:])
	copy(next[n:], r.buf[:r.head])
	r.buf = next
	r.head = 0
}

// nextPowerOfTwo returns the next power of 2 >= n
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	if n&(n-1) == 0 {
		return n
	}

	power := 1
	for power < n {
		power *= 2
	}
	return power
}
