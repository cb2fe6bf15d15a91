package types

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// ErrTaskExited is stored in a task's Future when its callable ended the
// goroutine with runtime.Goexit (t.FailNow in tests) instead of returning.
var ErrTaskExited = errors.New("task exited without returning")

// SubmittedTask is the type-erased unit of work that travels through the task queue.
// The concrete return type of the user's callable is captured inside Run, which
// resolves the task's Future; workers only ever see this nullary form.
type SubmittedTask struct {
	Id int64

	// Run evaluates the callable once and resolves its Future. It reports the
	// failure it stored (nil on success) and whether that failure was a panic.
	Run func(ctx context.Context) (err error, panicked bool)
}

// poisonPill is the sentinel a worker recognizes as "exit without executing".
var poisonPill = &SubmittedTask{Id: -1}

// PoisonPill returns the shared shutdown sentinel.
func PoisonPill() *SubmittedTask {
	return poisonPill
}

// IsPoison reports whether t is the shutdown sentinel.
func (t *SubmittedTask) IsPoison() bool {
	return t == poisonPill
}

// PanicError carries a value recovered from a panicking task together with
// the stack of the goroutine that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker panic: %v\nstack trace:\n%s", e.Value, e.Stack)
}

// Unwrap exposes a panicked error value to errors.Is / errors.As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// NewSubmittedTask binds fn to future: running the task evaluates fn exactly
// once and stores its value, its error or its recovered panic into the future.
// If fn calls runtime.Goexit the future is rejected with ErrTaskExited while
// the goroutine unwinds.
func NewSubmittedTask[R any](
	id int64,
	future *Future[R],
	fn func(ctx context.Context) (R, error),
) *SubmittedTask {
	return &SubmittedTask{
		Id: id,
		Run: func(ctx context.Context) (error, bool) {
			normalReturn := false
			defer func() {
				if !normalReturn {
					_ = future.Reject(ErrTaskExited)
				}
			}()

			value, err, panicked := callWithRecovery(ctx, fn)
			normalReturn = true
			_ = future.Complete(value, err)
			return err, panicked
		},
	}
}

// callWithRecovery executes fn and converts a panic into a *PanicError so a
// failing task can never take its worker down.
func callWithRecovery[R any](ctx context.Context, fn func(ctx context.Context) (R, error)) (result R, err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = &PanicError{Value: r, Stack: buf[:n]}
			panicked = true
		}
	}()

	result, err = fn(ctx)
	return result, err, false
}
