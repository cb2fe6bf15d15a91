package pool

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
	outcomePanic = "panic"
)

// poolMetrics holds the Prometheus collectors of one pool. A nil *poolMetrics
// is valid and records nothing.
type poolMetrics struct {
	reg prometheus.Registerer

	tasksSubmitted prometheus.Counter
	tasksRejected  prometheus.Counter
	tasksCompleted *prometheus.CounterVec
	taskDuration   prometheus.Histogram
	tasksRunning   prometheus.Gauge
	workersAlive   prometheus.Gauge
	queueLength    prometheus.GaugeFunc
}

// newPoolMetrics builds the pool's collectors and registers them with reg.
// It returns nil when reg is nil.
func newPoolMetrics(reg prometheus.Registerer, namespace, poolID string, queueLen func() int) (*poolMetrics, error) {
	if reg == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"pool_id": poolID}
	m := &poolMetrics{
		reg: reg,
		tasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "tasks_submitted_total",
			Help:        "Total number of tasks accepted by the pool",
			ConstLabels: labels,
		}),
		tasksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "tasks_rejected_total",
			Help:        "Total number of submissions refused because the pool was shutting down",
			ConstLabels: labels,
		}),
		tasksCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "tasks_completed_total",
				Help:        "Total number of executed tasks by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"}, // ok, error, panic
		),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "task_duration_seconds",
			Help:        "Task execution time in seconds",
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
			ConstLabels: labels,
		}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "tasks_running",
			Help:        "Number of tasks currently executing",
			ConstLabels: labels,
		}),
		workersAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "workers_alive",
			Help:        "Number of worker threads that have not exited",
			ConstLabels: labels,
		}),
		queueLength: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "queue_length",
				Help:        "Number of tasks waiting in the queue",
				ConstLabels: labels,
			},
			func() float64 { return float64(queueLen()) },
		),
	}

	collectors := m.collectors()
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, registered := range collectors[:i] {
				reg.Unregister(registered)
			}
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
	}
	return m, nil
}

// unregister removes the pool's collectors from the registerer once the pool
// has stopped, so a stopped pool exports no series and its queue is released.
func (m *poolMetrics) unregister() {
	if m == nil {
		return
	}
	for _, c := range m.collectors() {
		m.reg.Unregister(c)
	}
}

func (m *poolMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.tasksSubmitted,
		m.tasksRejected,
		m.tasksCompleted,
		m.taskDuration,
		m.tasksRunning,
		m.workersAlive,
		m.queueLength,
	}
}

func (m *poolMetrics) taskSubmitted() {
	if m == nil {
		return
	}
	m.tasksSubmitted.Inc()
}

func (m *poolMetrics) taskRejected() {
	if m == nil {
		return
	}
	m.tasksRejected.Inc()
}

func (m *poolMetrics) taskStarted() {
	if m == nil {
		return
	}
	m.tasksRunning.Inc()
}

func (m *poolMetrics) taskFinished(elapsed time.Duration, err error, panicked bool) {
	if m == nil {
		return
	}
	m.tasksRunning.Dec()
	m.taskDuration.Observe(elapsed.Seconds())

	outcome := outcomeOK
	switch {
	case panicked:
		outcome = outcomePanic
	case err != nil:
		outcome = outcomeError
	}
	m.tasksCompleted.WithLabelValues(outcome).Inc()
}

func (m *poolMetrics) workerStarted() {
	if m == nil {
		return
	}
	m.workersAlive.Inc()
}

func (m *poolMetrics) workerStopped() {
	if m == nil {
		return
	}
	m.workersAlive.Dec()
}
