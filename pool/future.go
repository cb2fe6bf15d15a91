package pool

import (
	"context"
	"fmt"

	"github.com/utkarsh5026/taskpool/internal/types"
)

// Future is the one-shot result cell returned by every submission.
type Future[R any] = types.Future[R]

// PanicError is stored in a Future when its task panicked.
type PanicError = types.PanicError

// Status reports the outcome of Future.WaitFor.
type Status = types.Status

const (
	StatusTimeout = types.StatusTimeout
	StatusReady   = types.StatusReady
)

var (
	// ErrAlreadyResolved is returned when a Future is resolved a second time.
	ErrAlreadyResolved = types.ErrAlreadyResolved
	// ErrNotReady is returned by Future.GetWithTimeout when the wait timed out.
	ErrNotReady = types.ErrNotReady
	// ErrTaskExited is stored in a Future when its task called runtime.Goexit.
	ErrTaskExited = types.ErrTaskExited
)

// NewFuture returns a pending Future not bound to any pool, for callers that
// resolve it themselves.
func NewFuture[R any]() *Future[R] {
	return types.NewFuture[R]()
}

// Collect waits for every future in order and returns their values.
// It stops at the first failure, returning the values gathered so far and the
// failure wrapped with the index of the future that produced it.
func Collect[R any](ctx context.Context, futures []*Future[R]) ([]R, error) {
	results := make([]R, 0, len(futures))
	for i, f := range futures {
		v, err := f.GetWithContext(ctx)
		if err != nil {
			return results, fmt.Errorf("future %d: %w", i, err)
		}
		results = append(results, v)
	}
	return results, nil
}

// Bind1 reduces a one-argument callable to the nullary form Submit accepts.
// A nil fn yields a nil callable, which Submit reports as ErrNilTask.
func Bind1[A, R any](fn func(A) (R, error), a A) func() (R, error) {
	if fn == nil {
		return nil
	}
	return func() (R, error) {
		return fn(a)
	}
}

// Bind2 is Bind1 for two-argument callables.
func Bind2[A, B, R any](fn func(A, B) (R, error), a A, b B) func() (R, error) {
	if fn == nil {
		return nil
	}
	return func() (R, error) {
		return fn(a, b)
	}
}
