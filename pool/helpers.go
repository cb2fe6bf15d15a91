package pool

import (
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrInvalidWorkerCount is returned by New when the configured worker count is below 1.
	ErrInvalidWorkerCount = errors.New("worker count must be at least 1")

	// ErrPoolShutdown is returned by every submission once Shutdown has started.
	ErrPoolShutdown = errors.New("pool is shut down")

	// ErrAlreadyShutdown is returned by a second call to Shutdown.
	ErrAlreadyShutdown = errors.New("pool shutdown already requested")

	// ErrShutdownTimeout is returned when the workers did not exit within the timeout.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")

	// ErrNilTask is stored in the future returned for a nil callable.
	ErrNilTask = errors.New("cannot submit a nil task")
)

// waitUntil blocks until either the done channel is closed or the timeout is reached.
// A non-positive timeout waits forever.
func waitUntil(d <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		<-d
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-d:
		return nil
	case <-timer.C:
		return ErrShutdownTimeout
	}
}

// callHook runs a user hook on a worker, recovering and logging a panic so the
// worker keeps serving the queue.
func callHook(log *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("hook panicked", "hook", name, "panic", r)
		}
	}()
	fn()
}
