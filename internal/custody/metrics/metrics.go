package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the custody module: committed
// transitions, rejected operations, commit conflicts and event delivery.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	Rejections        *prometheus.CounterVec
	Conflicts         prometheus.Counter
	OperationDuration *prometheus.HistogramVec
	EventsPublished   *prometheus.CounterVec
	EventsFailed      *prometheus.CounterVec
	EventsDiverted    *prometheus.CounterVec
	EmitterCircuit    prometheus.Gauge
}

// New registers the custody metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainguard_custody_transitions_total",
			Help: "Committed lifecycle transitions by action",
		}, []string{"action"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainguard_custody_rejections_total",
			Help: "Operations rejected before commit, by operation and error code",
		}, []string{"operation", "code"}),
		Conflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "chainguard_custody_commit_conflicts_total",
			Help: "Commits rejected by the ledger's optimistic version check",
		}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chainguard_custody_operation_duration_seconds",
			Help:    "Duration of custody operations",
			Buckets: durationBuckets,
		}, []string{"operation"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainguard_custody_events_published_total",
			Help: "Events delivered to the primary sink, by kind",
		}, []string{"kind"}),
		EventsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainguard_custody_events_failed_total",
			Help: "Events that reached no sink, by kind",
		}, []string{"kind"}),
		EventsDiverted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainguard_custody_events_diverted_total",
			Help: "Events delivered to the fallback sink instead of the primary, by kind",
		}, []string{"kind"}),
		EmitterCircuit: f.NewGauge(prometheus.GaugeOpts{
			Name: "chainguard_custody_emitter_circuit_open",
			Help: "1 while the event emitter's circuit breaker is open",
		}),
	}
}

func (m *Metrics) IncTransition(action string) {
	m.Transitions.WithLabelValues(action).Inc()
}

func (m *Metrics) IncRejection(operation, code string) {
	m.Rejections.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) IncConflict() {
	m.Conflicts.Inc()
}

// ObserveOperation records the duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncEventPublished(kind string) {
	m.EventsPublished.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncEventFailed(kind string) {
	m.EventsFailed.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncEventDiverted(kind string) {
	m.EventsDiverted.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if open {
		m.EmitterCircuit.Set(1)
		return
	}
	m.EmitterCircuit.Set(0)
}
