package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/utkarsh5026/taskpool/internal/queue"
	"github.com/utkarsh5026/taskpool/internal/types"
)

// Submit schedules fn on the pool and returns a Future for its outcome.
//
// Submit never blocks. The future is resolved with fn's value and error, or
// with a *PanicError if fn panics. A nil fn is not enqueued: the returned future
// is already resolved with ErrNilTask. Once Shutdown has started Submit returns
// ErrPoolShutdown and a nil future.
func Submit[R any](p *ThreadPool, fn func() (R, error)) (*Future[R], error) {
	if fn == nil {
		return submit[R](p, nil)
	}
	return submit(p, func(context.Context) (R, error) {
		return fn()
	})
}

// SubmitCtx is Submit for callables that take the task context. The context
// carries the task's tracing span together with the pool and worker ids. It is
// never cancelled.
func SubmitCtx[R any](p *ThreadPool, fn func(ctx context.Context) (R, error)) (*Future[R], error) {
	return submit(p, fn)
}

// SubmitValue is Submit for callables that cannot fail. A panic is still
// delivered through the future as a *PanicError.
func SubmitValue[R any](p *ThreadPool, fn func() R) (*Future[R], error) {
	if fn == nil {
		return submit[R](p, nil)
	}
	return submit(p, func(context.Context) (R, error) {
		return fn(), nil
	})
}

// Go schedules fn for its side effects. The returned future only signals
// completion or a panic.
func (p *ThreadPool) Go(fn func()) (*Future[struct{}], error) {
	if fn == nil {
		return submit[struct{}](p, nil)
	}
	return submit(p, func(context.Context) (struct{}, error) {
		fn()
		return struct{}{}, nil
	})
}

// GoErr is Go for side effects that may fail.
func (p *ThreadPool) GoErr(fn func() error) (*Future[struct{}], error) {
	if fn == nil {
		return submit[struct{}](p, nil)
	}
	return submit(p, func(context.Context) (struct{}, error) {
		return struct{}{}, fn()
	})
}

func submit[R any](p *ThreadPool, fn func(ctx context.Context) (R, error)) (*Future[R], error) {
	if p.State() != StateRunning {
		p.metrics.taskRejected()
		return nil, ErrPoolShutdown
	}

	id := p.nextTaskID.Add(1)
	future := types.NewFutureWithID[R](id)
	if fn == nil {
		_ = future.Reject(ErrNilTask)
		return future, nil
	}

	// Counted before the push so a fast worker never makes Completed overtake Submitted.
	p.stats.submitted.Add(1)
	if err := p.queue.Push(types.NewSubmittedTask(id, future, fn)); err != nil {
		p.stats.submitted.Add(-1)
		p.metrics.taskRejected()
		if errors.Is(err, queue.ErrQueueClosed) {
			return nil, ErrPoolShutdown
		}
		return nil, fmt.Errorf("enqueue task %d: %w", id, err)
	}

	p.metrics.taskSubmitted()
	return future, nil
}
