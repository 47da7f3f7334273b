package lifecycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/skekre98/modhost/module"
)

// Metrics are the orchestrator's prometheus instruments.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	reloads    *prometheus.CounterVec
	unresolved prometheus.Counter
	modules    *prometheus.GaugeVec
}

// NewMetrics creates the instruments and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modhost",
			Subsystem: "lifecycle",
			Name:      "operations_total",
			Help:      "Lifecycle operations by kind and outcome.",
		}, []string{"operation", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modhost",
			Subsystem: "lifecycle",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of lifecycle operations, lock wait excluded.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"operation"}),
		reloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modhost",
			Subsystem: "dispatch",
			Name:      "reloads_total",
			Help:      "Dispatch surface reloads by result.",
		}, []string{"result"}),
		unresolved: f.NewCounter(prometheus.CounterOpts{
			Namespace: "modhost",
			Subsystem: "lifecycle",
			Name:      "unresolved_orders_total",
			Help:      "Orderings that fell back to input order because of a dependency cycle.",
		}),
		modules: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "modhost",
			Name:      "modules",
			Help:      "Loaded modules by lifecycle state.",
		}, []string{"state"}),
	}
}

func (m *Metrics) observe(r *Result) {
	m.operations.WithLabelValues(string(r.Operation), string(r.Status)).Inc()
	m.duration.WithLabelValues(string(r.Operation)).Observe(r.Duration.Seconds())
}

func (m *Metrics) reload(err error) {
	if err != nil {
		m.reloads.WithLabelValues("error").Inc()
		return
	}
	m.reloads.WithLabelValues("ok").Inc()
}

func (m *Metrics) setModules(reg Registry) {
	counts := map[module.State]float64{
		module.StateLoaded:  0,
		module.StateStarted: 0,
		module.StateStopped: 0,
		module.StateError:   0,
	}
	for _, d := range reg.AllLoaded() {
		counts[reg.State(d.ID)]++
	}
	for s, c := range counts {
		m.modules.WithLabelValues(string(s)).Set(c)
	}
}
