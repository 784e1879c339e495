// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"multichain-distributor/internal/orchestrator"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cycle metrics
	CyclesTotal    *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	OutcomesTotal  *prometheus.CounterVec
	SentAmount     *prometheus.CounterVec
	ReservedAmount *prometheus.CounterVec

	// Reserve metrics
	ReserveGauge *prometheus.GaugeVec

	// Error metrics
	CycleErrors prometheus.Counter

	// Health metrics. LastSuccessfulCycle only advances on cycles that
	// finished without errors.
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "multichain_distributor"
	}

	return &Metrics{
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Total number of distribution cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Distribution cycle duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		OutcomesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "outcomes_total",
			Help:      "Total number of distribution outcomes by network and status",
		}, []string{"network", "status"}),
		SentAmount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "sent_amount_total",
			Help:      "Total token amount sent by network",
		}, []string{"network"}),
		ReservedAmount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "reserved_amount_total",
			Help:      "Total token amount newly reserved by network",
		}, []string{"network"}),
		ReserveGauge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reserve",
			Name:      "amount",
			Help:      "Current accumulated reserve by network",
		}, []string{"network"}),
		CycleErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "errors_total",
			Help:      "Total number of cycle-level errors",
		}),
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last completed cycle",
		}),
	}
}

// RecordCycle folds one cycle result into the metrics.
func (m *Metrics) RecordCycle(res *orchestrator.CycleResult) {
	status := "ok"
	if len(res.Errors) > 0 {
		status = "with_errors"
	}
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(float64(res.FinishedAt-res.StartedAt) / 1000)
	m.CycleErrors.Add(float64(len(res.Errors)))
	if len(res.Errors) == 0 {
		m.LastSuccessfulCycle.Set(float64(res.FinishedAt) / 1000)
	}

	for network, no := range res.Networks {
		for _, out := range no.Outcomes {
			m.OutcomesTotal.WithLabelValues(network, out.Status.String()).Inc()
		}
		m.SentAmount.WithLabelValues(network).Add(no.Sent)
		m.ReservedAmount.WithLabelValues(network).Add(no.Reserved)
	}
}

// SetReserve updates the reserve gauge for a network.
func (m *Metrics) SetReserve(network string, amount float64) {
	m.ReserveGauge.WithLabelValues(network).Set(amount)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
