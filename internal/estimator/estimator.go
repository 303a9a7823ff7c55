// Package estimator reports how much wall-clock time a pipeline saved
// compared to running every task without caching or parallelism.
package estimator

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fentz26/orbit/internal/models"
)

// Report is the savings estimate of one pipeline.
type Report struct {
	// Duration is the estimated baseline: the slowest task bucket.
	Duration time.Duration `json:"duration"`
	// Tasks sums the durations of every run of each task name.
	Tasks map[string]time.Duration `json:"tasks"`
	// Savings is nil when the pipeline was not faster than the baseline.
	Savings        *time.Duration `json:"savings"`
	SavingsPercent float64        `json:"savingsPercent"`
}

// Estimate buckets the durations of run-target actions by task name and
// compares the slowest bucket against the observed pipeline duration.
// Actions of other kinds, or without a duration, are ignored.
func Estimate(actions []*models.Action, pipeline time.Duration) *Report {
	tasks := make(map[string]time.Duration)

	for _, action := range actions {
		if action == nil || action.Duration == nil {
			continue
		}
		switch node := action.Node.(type) {
		case models.RunTargetNode:
			target, err := models.ParseTarget(node.Target)
			if err != nil {
				log.Printf("[estimator] skipping %s: %v", node.Target, err)
				continue
			}
			tasks[target.TaskID] += *action.Duration
		default:
			// install and other nodes do not contribute to the baseline
		}
	}

	var baseline time.Duration
	for _, d := range tasks {
		if d > baseline {
			baseline = d
		}
	}

	report := &Report{Duration: baseline, Tasks: tasks}
	if pipeline < baseline {
		savings := baseline - pipeline
		report.Savings = &savings
		report.SavingsPercent = savings.Seconds() / baseline.Seconds() * 100
	}
	return report
}

// Register exposes the report as gauges on reg.
func (r *Report) Register(reg prometheus.Registerer) error {
	baseline := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "orbit",
		Subsystem: "estimator",
		Name:      "baseline_seconds",
		Help:      "Estimated pipeline duration without caching.",
	})
	savings := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "orbit",
		Subsystem: "estimator",
		Name:      "savings_seconds",
		Help:      "Estimated time saved by the pipeline.",
	})
	percent := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "orbit",
		Subsystem: "estimator",
		Name:      "savings_percent",
		Help:      "Estimated savings as a percentage of the baseline.",
	})

	for _, c := range []prometheus.Collector{baseline, savings, percent} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	baseline.Set(r.Duration.Seconds())
	if r.Savings != nil {
		savings.Set(r.Savings.Seconds())
	}
	percent.Set(r.SavingsPercent)
	return nil
}
