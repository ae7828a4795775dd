// Package metrics holds the Prometheus instruments for the approval
// workflow. All methods tolerate a nil receiver so the engine runs
// uninstrumented in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ParticipantsDetected prometheus.Counter
	PreApproved          prometheus.Counter
	Resolved             *prometheus.CounterVec
	PendingEntries       prometheus.Gauge
	ResolutionSeconds    prometheus.Histogram
	RemovalFailures      prometheus.Counter
}

// New creates and registers all workflow metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		ParticipantsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_participants_detected_total",
			Help: "Total number of automated participants that entered the approval workflow",
		}),
		PreApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_participants_pre_approved_total",
			Help: "Total number of allowlisted participants that skipped the workflow",
		}),
		Resolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_approvals_resolved_total",
			Help: "Total number of resolved approvals by outcome",
		}, []string{"outcome"}),
		PendingEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "warden_approvals_pending",
			Help: "Current number of pending approval entries across all communities",
		}),
		ResolutionSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "warden_approval_resolution_seconds",
			Help: "Time from detection to resolution",
			// Approval windows are seconds to minutes, not hours.
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		RemovalFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_removal_failures_total",
			Help: "Total number of participant removals that exhausted all attempts",
		}),
	}
}

func (m *Metrics) IncDetected() {
	if m == nil {
		return
	}
	m.ParticipantsDetected.Inc()
}

func (m *Metrics) IncPreApproved() {
	if m == nil {
		return
	}
	m.PreApproved.Inc()
}

func (m *Metrics) IncResolved(outcome string) {
	if m == nil {
		return
	}
	m.Resolved.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetPending(count int) {
	if m == nil {
		return
	}
	m.PendingEntries.Set(float64(count))
}

func (m *Metrics) ObserveResolution(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ResolutionSeconds.Observe(elapsed.Seconds())
}

func (m *Metrics) IncRemovalFailure() {
	if m == nil {
		return
	}
	m.RemovalFailures.Inc()
}
