package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit stream.
type Metrics struct {
	Published       prometheus.Counter
	Sampled         prometheus.Counter
	BreakerDropped  prometheus.Counter
	PublishFailures prometheus.Counter
	BreakerState    prometheus.Gauge
}

// NewMetrics creates and registers the stream metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_audit_stream_published_total",
			Help: "Total number of audit events delivered to the stream topic",
		}),
		Sampled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_audit_stream_sampled_total",
			Help: "Total number of audit events dropped by sampling",
		}),
		BreakerDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_audit_stream_breaker_dropped_total",
			Help: "Total number of audit events dropped while the circuit breaker was open",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_audit_stream_publish_failures_total",
			Help: "Total number of audit stream delivery failures",
		}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "warden_audit_stream_breaker_state",
			Help: "Audit stream circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) IncPublished() {
	if m != nil {
		m.Published.Inc()
	}
}

func (m *Metrics) IncSampled() {
	if m != nil {
		m.Sampled.Inc()
	}
}

func (m *Metrics) IncBreakerDropped() {
	if m != nil {
		m.BreakerDropped.Inc()
	}
}

func (m *Metrics) IncPublishFailures() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

func (m *Metrics) SetBreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
