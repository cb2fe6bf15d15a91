// Package queue provides unbounded, blocking, multi-producer multi-consumer FIFO
// queues used to hand tasks from submitters to workers.
//
// Both implementations block consumers on a sync.Cond; neither spins. A queue is
// sealed with Close, which can atomically append a final batch of items (the
// pool uses this to enqueue one poison pill per worker in the same critical
// section that stops admission, so no task can slip in behind the pills).
package queue

import "errors"

var (
	// ErrQueueClosed is returned by Push and Close once the queue is sealed.
	ErrQueueClosed = errors.New("queue is closed")
)

// Queue is the contract workers and submitters rely on.
type Queue[T any] interface {
	// Push appends v. It never blocks waiting for capacity.
	// Returns ErrQueueClosed if the queue has been sealed.
	Push(v T) error

	// Pop removes the oldest item, blocking until one is available.
	// ok is false only when the queue is sealed and fully drained.
	Pop() (v T, ok bool)

	// Close appends tail (in order) and seals the queue in one step.
	// Items already queued remain poppable. A second Close returns ErrQueueClosed.
	Close(tail ...T) error

	// Len reports the number of queued items.
	Len() int
}

// Strategy selects a Queue implementation.
type Strategy int

const (
	// StrategyRing is a growable ring buffer guarded by one mutex.
	StrategyRing Strategy = iota
	// StrategyLinked is a two-lock linked queue: producers and consumers take different locks.
	StrategyLinked
)

func (s Strategy) String() string {
	switch s {
	case StrategyRing:
		return "ring"
	case StrategyLinked:
		return "linked"
	default:
		return "unknown"
	}
}

// New creates a queue for the given strategy. Unknown strategies fall back to the ring.
func New[T any](s Strategy) Queue[T] {
	switch s {
	case StrategyLinked:
		return NewLinked[T]()
	default:
		return NewRing[T](0)
	}
}
