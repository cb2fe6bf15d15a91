package types

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrAlreadyResolved is returned when a second resolution is attempted on a Future.
	ErrAlreadyResolved = errors.New("future already resolved")

	// ErrNilFailure is returned by Reject when called with a nil error.
	ErrNilFailure = errors.New("cannot reject future with nil error")

	// ErrNotReady is returned by GetWithTimeout when the timeout elapses before resolution.
	ErrNotReady = errors.New("future not ready")
)

// Status reports the outcome of a bounded wait on a Future.
type Status int

const (
	// StatusTimeout means the Future was still pending when the wait ended.
	StatusTimeout Status = iota
	// StatusReady means the Future holds a value or a failure.
	StatusReady
)

func (s Status) String() string {
	if s == StatusReady {
		return "ready"
	}
	return "timeout"
}

// Future is a one-shot, thread-safe holder for the outcome of a task.
//
// Exactly one resolution (Resolve or Reject) is accepted. Reads never consume the
// stored outcome: any number of goroutines may call Get concurrently and every one
// of them observes the same value or the same error.
//
// Type parameters:
//   - R: The type of the value produced by the task
type Future[R any] struct {
	mu    sync.Mutex
	done  chan struct{} // closed exactly once, on resolution
	value R
	err   error
	ready bool
	id    int64
}

// NewFuture creates a pending Future that is not bound to any task.
func NewFuture[R any]() *Future[R] {
	return NewFutureWithID[R](0)
}

// NewFutureWithID creates a pending Future for the task with the given id.
func NewFutureWithID[R any](id int64) *Future[R] {
	return &Future[R]{
		done: make(chan struct{}),
		id:   id,
	}
}

// ID returns the id of the task that resolves this Future (0 if unbound).
func (f *Future[R]) ID() int64 {
	return f.id
}

// Resolve stores value and wakes every waiter.
// Returns ErrAlreadyResolved if the Future already holds an outcome.
func (f *Future[R]) Resolve(value R) error {
	return f.complete(value, nil)
}

// Reject stores err as the outcome and wakes every waiter.
// Returns ErrNilFailure for a nil err (the Future stays pending) and
// ErrAlreadyResolved if the Future already holds an outcome.
func (f *Future[R]) Reject(err error) error {
	if err == nil {
		return ErrNilFailure
	}
	var zero R
	return f.complete(zero, err)
}

// Complete stores value and err together, the way a task returns them.
// A non-nil err makes the outcome a failure; value is kept so callers that
// inspect partial results on error still see it.
func (f *Future[R]) Complete(value R, err error) error {
	return f.complete(value, err)
}

func (f *Future[R]) complete(value R, err error) error {
	f.mu.Lock()
	if f.ready {
		f.mu.Unlock()
		onDoubleResolve(f.id)
		return ErrAlreadyResolved
	}
	f.value = value
	f.err = err
	f.ready = true
	close(f.done)
	f.mu.Unlock()

	debugLog("future %d resolved (failed=%t)", f.id, err != nil)
	return nil
}

// Get blocks until the Future is resolved and returns its outcome.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	return f.load()
}

// GetWithContext blocks until the Future is resolved or ctx is done.
// On ctx expiry it returns ctx.Err() and the Future is left untouched.
func (f *Future[R]) GetWithContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.load()
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// GetWithTimeout blocks for at most timeout. It returns ErrNotReady if the
// Future is still pending when the timeout elapses.
func (f *Future[R]) GetWithTimeout(timeout time.Duration) (R, error) {
	if f.WaitFor(timeout) == StatusTimeout {
		var zero R
		return zero, ErrNotReady
	}
	return f.load()
}

// WaitFor waits up to timeout for the Future to be resolved and reports
// whether it is ready. It never consumes the outcome.
func (f *Future[R]) WaitFor(timeout time.Duration) Status {
	if timeout <= 0 {
		if f.IsReady() {
			return StatusReady
		}
		return StatusTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return StatusReady
	case <-timer.C:
		return StatusTimeout
	}
}

// TryGet returns the outcome without blocking. ready is false while the
// Future is pending, in which case value and err are zero.
func (f *Future[R]) TryGet() (value R, err error, ready bool) {
	select {
	case <-f.done:
		value, err = f.load()
		return value, err, true
	default:
		return value, nil, false
	}
}

// Done returns a channel that is closed once the Future is resolved.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// IsReady reports whether the Future holds an outcome.
func (f *Future[R]) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Future[R]) load() (R, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}
