// Package metrics exposes Prometheus collectors for conversation turns.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chatflow"

// Metrics groups the collectors updated by the executor, the backend runner and the
// validator. A nil *Metrics is valid and records nothing.
type Metrics struct {
	turns            *prometheus.CounterVec
	nodesExecuted    *prometheus.CounterVec
	delegateLatency  *prometheus.HistogramVec
	delegateFailures *prometheus.CounterVec
	validations      *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

// New registers all collectors with registry, or the default registerer when nil.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by operation (start, input) and outcome (input, complete, error)",
		}, []string{"operation", "outcome"}),
		nodesExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_executed_total",
			Help:      "Executed workflow nodes by type and execution location",
		}, []string{"node_type", "location"}),
		delegateLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delegate_latency_ms",
			Help:      "Backend delegate call duration in milliseconds",
			Buckets:   []float64{5, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"node_type"}),
		delegateFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delegate_failures_total",
			Help:      "Backend delegate calls that failed",
		}, []string{"node_type"}),
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Workflow validations by result",
		}, []string{"valid"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions started and not yet completed or reset",
		}),
	}
}

func (m *Metrics) RecordTurn(operation, outcome string) {
	if m == nil {
		return
	}

	m.turns.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) RecordNode(nodeType, location string) {
	if m == nil {
		return
	}

	m.nodesExecuted.WithLabelValues(nodeType, location).Inc()
}

func (m *Metrics) ObserveDelegate(nodeType string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}

	m.delegateLatency.WithLabelValues(nodeType).Observe(float64(elapsed.Milliseconds()))

	if err != nil {
		m.delegateFailures.WithLabelValues(nodeType).Inc()
	}
}

func (m *Metrics) RecordValidation(valid bool) {
	if m == nil {
		return
	}

	label := "false"
	if valid {
		label = "true"
	}

	m.validations.WithLabelValues(label).Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}

	m.activeSessions.Inc()
}

func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}

	m.activeSessions.Dec()
}
