// Package metrics provides a Prometheus-backed hal.EventHook, the concrete
// per-event telemetry callback spec.md §6 lists as optional. Grounded on
// other_examples' sourcegraph-zoekt shards/sched.go, which wires
// promauto counters directly into a scheduler's hot path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mneedes/gomos/hal"
)

// PrometheusHook counts scheduler entries/exits and ticks, and is safe to
// pass as a kernel.Config.EventHook. Construct one per kernel instance;
// NewPrometheusHook registers its metrics, so constructing two hooks
// against the same registerer panics on duplicate metric registration, as
// with any promauto metric.
type PrometheusHook struct {
	enters   prometheus.Counter
	exits    prometheus.Counter
	ticks    prometheus.Counter
	schedule prometheus.Histogram
}

// NewPrometheusHook registers its metrics against reg (use
// prometheus.NewRegistry() in tests to avoid global-registry collisions).
func NewPrometheusHook(reg prometheus.Registerer) *PrometheusHook {
	factory := promauto.With(reg)
	return &PrometheusHook{
		enters: factory.NewCounter(prometheus.CounterOpts{
			Name: "gomos_scheduler_enters_total",
			Help: "Number of times the scheduler was entered.",
		}),
		exits: factory.NewCounter(prometheus.CounterOpts{
			Name: "gomos_scheduler_exits_total",
			Help: "Number of times the scheduler chose a thread to resume.",
		}),
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "gomos_ticks_total",
			Help: "Number of system ticks processed.",
		}),
		schedule: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gomos_schedule_thread_id",
			Help:    "Distribution of thread IDs chosen to run (coarse scheduling-fairness signal).",
			Buckets: prometheus.LinearBuckets(0, 1, 16),
		}),
	}
}

// Hook returns the hal.EventHook to install in kernel.Config.
func (p *PrometheusHook) Hook() hal.EventHook {
	return func(ev hal.Event, tick uint64, threadID int) {
		switch ev {
		case hal.EventSchedulerEnter:
			p.enters.Inc()
		case hal.EventSchedulerExit:
			p.exits.Inc()
			p.schedule.Observe(float64(threadID))
		case hal.EventTick:
			p.ticks.Inc()
		}
	}
}
