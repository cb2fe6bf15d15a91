package pool

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/utkarsh5026/taskpool/internal/queue"
)

// Option is a functional option for configuring the thread pool.
type Option func(*poolConfig)

// QueueStrategy selects the task queue implementation shared by the workers.
type QueueStrategy = queue.Strategy

const (
	// QueueRing is a single-lock growable ring buffer.
	QueueRing = queue.StrategyRing
	// QueueLinked is a two-lock linked queue where producers and consumers
	// contend on different locks.
	QueueLinked = queue.StrategyLinked
)

// TaskInfo describes a task to the per-task hooks.
type TaskInfo struct {
	// ID is the submission sequence number of the task, starting at 1.
	ID int64
	// WorkerID is the index of the worker running the task.
	WorkerID int
	// Elapsed is the execution time; zero in BeforeTaskStart.
	Elapsed time.Duration
}

type poolConfig struct {
	workerCount   int
	queueStrategy QueueStrategy
	lockThreads   bool
	pinCPUs       bool
	rateLimiter   *rate.Limiter

	beforeTaskStart func(TaskInfo)
	onTaskEnd       func(TaskInfo, error)

	logger           *slog.Logger
	registerer       prometheus.Registerer
	metricsNamespace string
	tracerProvider   trace.TracerProvider
}

func defaultConfig() *poolConfig {
	return &poolConfig{
		workerCount:      runtime.GOMAXPROCS(0),
		queueStrategy:    QueueRing,
		lockThreads:      true,
		metricsNamespace: "taskpool",
	}
}

// WithWorkerCount sets the number of workers.
// If not specified, defaults to runtime.GOMAXPROCS(0). New rejects a count
// below 1 with ErrInvalidWorkerCount.
func WithWorkerCount(count int) Option {
	return func(cfg *poolConfig) {
		cfg.workerCount = count
	}
}

// WithQueueStrategy selects the task queue implementation.
// If not specified, defaults to QueueRing.
func WithQueueStrategy(s QueueStrategy) Option {
	return func(cfg *poolConfig) {
		cfg.queueStrategy = s
	}
}

// WithThreadLocking controls whether each worker goroutine is locked to its own
// OS thread for its whole lifetime. Enabled by default.
func WithThreadLocking(enabled bool) Option {
	return func(cfg *poolConfig) {
		cfg.lockThreads = enabled
	}
}

// WithCPUAffinity pins worker i to core i % NumCPU on platforms that support it.
// Pinning implies thread locking. Workers that fail to pin keep running unpinned
// and the failure is logged.
func WithCPUAffinity() Option {
	return func(cfg *poolConfig) {
		cfg.pinCPUs = true
	}
}

// WithRateLimit sets a rate limiter for controlling task throughput.
// tasksPerSecond specifies the maximum number of tasks started per second across
// all workers. burst specifies how many tasks may start back to back.
// If not specified, no rate limiting is applied.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *poolConfig) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithBeforeTaskStart sets a hook called on the worker right before a task runs.
// A panicking hook is recovered and logged; it never affects the task.
func WithBeforeTaskStart(fn func(TaskInfo)) Option {
	return func(cfg *poolConfig) {
		cfg.beforeTaskStart = fn
	}
}

// WithOnTaskEnd sets a hook called on the worker after a task's future has been
// resolved. err is the failure stored in the future, nil on success.
func WithOnTaskEnd(fn func(info TaskInfo, err error)) Option {
	return func(cfg *poolConfig) {
		cfg.onTaskEnd = fn
	}
}

// WithLogger sets the structured logger for pool lifecycle events.
// If not specified, nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *poolConfig) {
		cfg.logger = logger
	}
}

// WithMetrics registers the pool's Prometheus collectors with reg under the
// given namespace. Every collector carries a pool_id const label, so several
// pools can share one registry.
func WithMetrics(reg prometheus.Registerer, namespace string) Option {
	return func(cfg *poolConfig) {
		cfg.registerer = reg
		if namespace != "" {
			cfg.metricsNamespace = namespace
		}
	}
}

// WithTracerProvider makes every executed task run inside a span from tp.
// If not specified, the global OpenTelemetry provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *poolConfig) {
		cfg.tracerProvider = tp
	}
}
