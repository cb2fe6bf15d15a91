package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/utkarsh5026/taskpool/internal/queue"
	"github.com/utkarsh5026/taskpool/internal/types"
)

const tracerName = "github.com/utkarsh5026/taskpool/pool"

// ThreadPool is a fixed set of workers executing submitted callables in FIFO
// order. The zero value is not usable; create pools with New.
//
// All methods are safe for concurrent use.
type ThreadPool struct {
	id          string
	workerCount int
	lockThreads bool
	pinCPUs     bool

	queue      queue.Queue[*types.SubmittedTask]
	state      atomic.Int32
	nextTaskID atomic.Int64
	workers    errgroup.Group
	draining   chan struct{} // closed once shutdown is requested
	done       chan struct{}

	rateLimiter     *rate.Limiter
	beforeTaskStart func(TaskInfo)
	onTaskEnd       func(TaskInfo, error)

	// ctx is the parent of every task context. It is never cancelled.
	ctx     context.Context
	logger  *slog.Logger
	metrics *poolMetrics
	tracer  trace.Tracer
	stats   poolStats
}

// New creates a pool and starts its workers with the given options.
// Default configuration: workers = GOMAXPROCS, ring queue, thread locking on.
func New(opts ...Option) (*ThreadPool, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.workerCount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, cfg.workerCount)
	}

	id := uuid.NewString()
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tp := cfg.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	p := &ThreadPool{
		id:              id,
		workerCount:     cfg.workerCount,
		lockThreads:     cfg.lockThreads,
		pinCPUs:         cfg.pinCPUs,
		queue:           queue.New[*types.SubmittedTask](cfg.queueStrategy),
		draining:        make(chan struct{}),
		done:            make(chan struct{}),
		rateLimiter:     cfg.rateLimiter,
		beforeTaskStart: cfg.beforeTaskStart,
		onTaskEnd:       cfg.onTaskEnd,
		logger:          logger.With("pool_id", id),
		tracer:          tp.Tracer(tracerName),
	}
	p.ctx = context.WithValue(context.Background(), poolIDKey{}, id)

	metrics, err := newPoolMetrics(cfg.registerer, cfg.metricsNamespace, id, p.queue.Len)
	if err != nil {
		return nil, err
	}
	p.metrics = metrics

	p.start()
	p.logger.Info("pool started",
		"workers", p.workerCount,
		"queue", cfg.queueStrategy.String(),
		"thread_locking", p.lockThreads,
		"cpu_affinity", p.pinCPUs)
	return p, nil
}

// start launches the workers and a supervisor that marks the pool stopped once
// shutdown has been requested and all of them have exited.
func (p *ThreadPool) start() {
	for i := range p.workerCount {
		p.workers.Go(func() error {
			return p.worker(i)
		})
	}

	go func() {
		<-p.draining
		err := p.workers.Wait()
		p.state.Store(int32(StateStopped))
		if err != nil {
			p.logger.Error("worker failed", "error", err)
		}
		p.metrics.unregister()
		p.logger.Info("pool stopped", "stats", p.Stats())
		debugLog("pool %s stopped", p.id)
		close(p.done)
	}()
}

// Shutdown stops accepting tasks and waits for the workers to drain the queue.
//
// Every task submitted before Shutdown still runs. A timeout of zero waits
// forever; otherwise ErrShutdownTimeout is returned when workers are still busy
// when it elapses, and the pool keeps draining in the background. Calling
// Shutdown a second time returns ErrAlreadyShutdown.
//
// A task must not call Shutdown(0) or Close on its own pool: it would wait for
// its own worker to exit. Tasks use RequestShutdown instead.
func (p *ThreadPool) Shutdown(timeout time.Duration) error {
	if err := p.RequestShutdown(); err != nil {
		return err
	}

	if err := waitUntil(p.done, timeout); err != nil {
		p.logger.Warn("shutdown timed out", "timeout", timeout, "queued", p.queue.Len())
		return err
	}
	return nil
}

// RequestShutdown starts the same shutdown as Shutdown but returns without
// waiting for the workers; Done is closed once they have exited. It is safe to
// call from inside a task. A second request returns ErrAlreadyShutdown.
func (p *ThreadPool) RequestShutdown() error {
	if !p.state.CompareAndSwap(int32(StateRunning), int32(StateDraining)) {
		return ErrAlreadyShutdown
	}
	p.logger.Info("shutdown requested", "queued", p.queue.Len())

	pills := make([]*types.SubmittedTask, p.workerCount)
	for i := range pills {
		pills[i] = types.PoisonPill()
	}
	err := p.queue.Close(pills...)
	close(p.draining)
	if err != nil {
		return fmt.Errorf("seal task queue: %w", err)
	}
	return nil
}

// Close shuts the pool down and waits for every worker to exit. Unlike
// Shutdown it may be called any number of times, which makes it suitable
// for defer. Like Shutdown(0) it must not be called from one of the pool's tasks.
func (p *ThreadPool) Close() error {
	err := p.Shutdown(0)
	if errors.Is(err, ErrAlreadyShutdown) {
		<-p.done
		return nil
	}
	return err
}

// Done returns a channel that is closed once every worker has exited.
func (p *ThreadPool) Done() <-chan struct{} {
	return p.done
}

// State reports the pool's lifecycle phase.
func (p *ThreadPool) State() State {
	return State(p.state.Load())
}

// Workers returns the configured number of workers.
func (p *ThreadPool) Workers() int {
	return p.workerCount
}

// ID returns the pool's unique id, attached to its logs, metrics and spans.
func (p *ThreadPool) ID() string {
	return p.id
}

// QueueLen returns the number of tasks waiting for a worker.
func (p *ThreadPool) QueueLen() int {
	return p.queue.Len()
}

// Stats is a snapshot of the pool's task counters.
type Stats struct {
	Submitted int64         // tasks accepted into the queue
	Completed int64         // tasks executed, whatever their outcome
	Failed    int64         // executed tasks that stored a failure, panics included
	Panicked  int64         // executed tasks that panicked
	Running   int64         // tasks executing right now
	Replaced  int64         // workers restarted after a task ended their goroutine
	Queued    int           // tasks waiting for a worker
	BusyTime  time.Duration // total execution time across workers
}

// Stats returns a snapshot of the pool's counters. The fields are read
// independently and may be mutually inconsistent while tasks are in flight.
func (p *ThreadPool) Stats() Stats {
	return Stats{
		Submitted: p.stats.submitted.Load(),
		Completed: p.stats.completed.Load(),
		Failed:    p.stats.failed.Load(),
		Panicked:  p.stats.panicked.Load(),
		Running:   p.stats.running.Load(),
		Replaced:  p.stats.replaced.Load(),
		Queued:    p.queue.Len(),
		BusyTime:  time.Duration(p.stats.busyNanos.Load()),
	}
}

type poolStats struct {
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
	running   atomic.Int64
	replaced  atomic.Int64
	busyNanos atomic.Int64
}

func (s *poolStats) record(elapsed time.Duration, err error, panicked bool) {
	s.completed.Add(1)
	s.busyNanos.Add(int64(elapsed))
	if err != nil {
		s.failed.Add(1)
	}
	if panicked {
		s.panicked.Add(1)
	}
}

type (
	poolIDKey   struct{}
	workerIDKey struct{}
)

// PoolIDFromContext returns the id of the pool running the task that owns ctx.
func PoolIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(poolIDKey{}).(string)
	return id, ok
}

// WorkerIDFromContext returns the index of the worker running the task that owns ctx.
func WorkerIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(workerIDKey{}).(int)
	return id, ok
}
