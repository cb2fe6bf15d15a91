// Package pool provides a fixed-size thread pool with future-returning task
// submission.
//
// The primary type is ThreadPool, a fixed set of workers consuming tasks from a
// shared FIFO queue. Each worker is a goroutine locked to its own OS thread.
// Submitting a callable never blocks: it returns a *Future that is resolved with
// the callable's value, its error or its recovered panic once a worker has run it.
//
// # Basic Usage
//
//	p, err := pool.New(pool.WithWorkerCount(4))
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	f, err := pool.Submit(p, func() (int, error) {
//	    return 6 * 7, nil
//	})
//	if err != nil {
//	    return err // the pool is shutting down
//	}
//	v, err := f.Get() // 42, nil
//
// Return types may differ between submissions to the same pool:
//
//	name, _ := pool.SubmitValue(p, func() string { return "gopher" })
//	done, _ := p.Go(func() { flush() })
//
// Callables taking arguments are reduced to nullary form with Bind1 and Bind2:
//
//	f, _ := pool.Submit(p, pool.Bind2(divide, 10, 2))
//
// # Futures
//
// A Future is resolved exactly once and never consumed by reads, so any number
// of goroutines may wait on it and all of them observe the same outcome:
//
//   - Get blocks until the task finished
//   - GetWithContext and GetWithTimeout bound the wait
//   - WaitFor and TryGet poll without blocking indefinitely
//   - Done returns a channel for use in select
//
// A task that panics resolves its future with a *PanicError carrying the
// recovered value and the stack of the worker that ran it. The worker survives.
//
// # Shutdown
//
// Shutdown seals the task queue while appending one poison pill per worker.
// Everything submitted before that point still runs; every later submission
// fails with ErrPoolShutdown. Each worker exits when it pops its pill and
// Shutdown returns once all of them are gone:
//
//	if err := p.Shutdown(5 * time.Second); errors.Is(err, pool.ErrShutdownTimeout) {
//	    // workers are still draining the backlog
//	}
//
// Close is Shutdown without a timeout and may be called any number of times.
//
// # Configuration Options
//
//   - WithWorkerCount(n): number of workers (default: GOMAXPROCS)
//   - WithQueueStrategy(s): QueueRing (default) or QueueLinked
//   - WithThreadLocking(b): lock each worker to its OS thread (default: true)
//   - WithCPUAffinity(): pin worker i to core i % NumCPU where supported
//   - WithRateLimit(tasksPerSecond, burst): throttle task execution
//   - WithBeforeTaskStart(fn), WithOnTaskEnd(fn): per-task hooks
//   - WithLogger(l): structured lifecycle logging via log/slog
//   - WithMetrics(reg, namespace): Prometheus collectors
//   - WithTracerProvider(tp): one OpenTelemetry span per executed task
package pool
