package pool

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utkarsh5026/taskpool/internal/cpu"
	"github.com/utkarsh5026/taskpool/internal/types"
)

// worker is the fetch-execute loop of one worker. It blocks on the queue, runs
// every task it pops and returns when it pops a poison pill. Failures of a task
// never reach this loop: they are captured into the task's future.
func (p *ThreadPool) worker(workerID int) error {
	log := p.logger.With("worker_id", workerID)

	// Cleared only on a regular exit. A task that calls runtime.Goexit unwinds
	// this goroutine without returning, and the worker must be replaced.
	normalReturn := false
	defer func() {
		if !normalReturn {
			p.replaceWorker(log, workerID)
		}
	}()

	switch {
	case p.pinCPUs:
		// A pinned thread is never unlocked; it is discarded when the worker exits.
		core, err := cpu.PinWorker(workerID)
		if err != nil {
			log.Warn("cpu pinning failed, running unpinned", "error", err)
		} else {
			log.Debug("worker pinned", "core", core)
		}
	case p.lockThreads:
		defer cpu.LockThread()()
	}

	p.metrics.workerStarted()
	defer p.metrics.workerStopped()
	log.Debug("worker started")

	ctx := context.WithValue(p.ctx, workerIDKey{}, workerID)
	for {
		task, ok := p.queue.Pop()
		if !ok || task.IsPoison() {
			log.Debug("worker exiting")
			normalReturn = true
			return nil
		}
		p.execute(ctx, log, workerID, task)
	}
}

// execute runs one task with the pool's throttle, hooks, tracing and accounting
// around it.
func (p *ThreadPool) execute(ctx context.Context, log *slog.Logger, workerID int, task *types.SubmittedTask) {
	if p.rateLimiter != nil {
		if err := p.rateLimiter.Wait(ctx); err != nil {
			log.Warn("rate limiter wait failed", "task_id", task.Id, "error", err)
		}
	}

	info := TaskInfo{ID: task.Id, WorkerID: workerID}
	if p.beforeTaskStart != nil {
		callHook(log, "before_task_start", func() { p.beforeTaskStart(info) })
	}

	ctx, span := p.tracer.Start(ctx, "taskpool.task",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("taskpool.pool_id", p.id),
			attribute.Int64("taskpool.task_id", task.Id),
			attribute.Int("taskpool.worker_id", workerID),
		))

	p.stats.running.Add(1)
	p.metrics.taskStarted()
	debugLog("worker %d: running task %d", workerID, task.Id)

	// Accounting is deferred so a task that ends the goroutine with
	// runtime.Goexit is still recorded, as a failure.
	err, panicked := error(types.ErrTaskExited), false
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		p.stats.running.Add(-1)
		p.stats.record(elapsed, err, panicked)
		p.metrics.taskFinished(elapsed, err, panicked)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "task failed")
		}
		span.SetAttributes(attribute.Bool("taskpool.panicked", panicked))
		span.End()

		switch {
		case panicked:
			log.Warn("task panicked", "task_id", task.Id, "error", err)
		case errors.Is(err, types.ErrTaskExited):
			log.Warn("task exited the worker goroutine", "task_id", task.Id)
		}

		if p.onTaskEnd != nil {
			info.Elapsed = elapsed
			callHook(log, "on_task_end", func() { p.onTaskEnd(info, err) })
		}
	}()

	err, panicked = task.Run(ctx)
}

// replaceWorker starts a new worker under the same id in place of one whose
// goroutine was ended by a task. The pool keeps its worker count until Shutdown.
func (p *ThreadPool) replaceWorker(log *slog.Logger, workerID int) {
	p.stats.replaced.Add(1)
	log.Warn("worker goroutine ended by a task, starting a replacement")
	p.workers.Go(func() error {
		return p.worker(workerID)
	})
}
