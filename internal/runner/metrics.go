package runner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fentz26/orbit/internal/models"
)

// Metrics are the runner's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Outcomes *prometheus.CounterVec
	Attempts prometheus.Counter
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orbit",
			Subsystem: "target",
			Name:      "outcomes_total",
			Help:      "Target runs by final status.",
		}, []string{"status"}),
		Attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orbit",
			Subsystem: "target",
			Name:      "attempts_total",
			Help:      "Process attempts launched, including retries.",
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orbit",
			Subsystem: "target",
			Name:      "duration_seconds",
			Help:      "Wall-clock time of target runs by final status.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.Outcomes, m.Attempts, m.Duration)
	}
	return m
}

func (m *Metrics) observe(status models.ActionStatus, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(string(status)).Inc()
	m.Duration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) attempt() {
	if m == nil {
		return
	}
	m.Attempts.Inc()
}
