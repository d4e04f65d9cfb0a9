// Package metrics exposes billing fetch activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "copilotspend"

// Recorder owns the billing collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	fetchesTotal     *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	endpointAttempts *prometheus.CounterVec
	spentDollars     *prometheus.GaugeVec
	budgetDollars    *prometheus.GaugeVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		fetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "Billing fetches by account source and outcome",
			},
			[]string{"source", "outcome"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Billing fetch duration in seconds, all round trips included",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source"},
		),
		endpointAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "endpoint_attempts_total",
				Help:      "Billing endpoint requests by endpoint and result",
			},
			[]string{"endpoint", "result"}, // ok, no_data, forbidden, not_found, error
		),
		spentDollars: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "spent_dollars",
				Help:      "Amount spent this billing period",
			},
			[]string{"source"},
		),
		budgetDollars: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "budget_dollars",
				Help:      "Budget ceiling for this billing period, when known",
			},
			[]string{"source"},
		),
	}
	if reg != nil {
		reg.MustRegister(r.fetchesTotal, r.fetchDuration, r.endpointAttempts, r.spentDollars, r.budgetDollars)
	}
	return r
}

func (r *Recorder) ObserveFetch(source, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.fetchesTotal.WithLabelValues(source, outcome).Inc()
	r.fetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveEndpoint(endpoint, result string) {
	if r == nil {
		return
	}
	r.endpointAttempts.WithLabelValues(endpoint, result).Inc()
}

// SetSpend publishes the latest figures. A nil budget removes the budget series.
func (r *Recorder) SetSpend(source string, spent float64, budget *float64) {
	if r == nil {
		return
	}
	r.spentDollars.WithLabelValues(source).Set(spent)
	if budget == nil {
		r.budgetDollars.DeleteLabelValues(source)
		return
	}
	r.budgetDollars.WithLabelValues(source).Set(*budget)
}
