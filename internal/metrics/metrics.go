// Package metrics collects Prometheus metrics for the reward layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors used across the service.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpInFlight  prometheus.Gauge
	submissions   *prometheus.CounterVec
	registrations *prometheus.CounterVec
	batchItems    *prometheus.CounterVec
	currentCycle  prometheus.Gauge
	rewardsLeft   prometheus.Gauge
	rewardsTotal  prometheus.Gauge
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by service, method, path and status.",
		}, []string{"service", "method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"service", "method", "path"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reward_submissions_total",
			Help: "Submissions processed by outcome (registered, below_threshold, denied, error).",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reward_registrations_total",
			Help: "Ledger reward registrations by result (confirmed, reverted, failed).",
		}, []string{"result"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reward_batch_items_total",
			Help: "Batch reward items by result (success, failure).",
		}, []string{"result"}),
		currentCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reward_current_cycle",
			Help: "Current reward cycle id as observed on the ledger.",
		}),
		rewardsLeft: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reward_cycle_rewards_left_verd",
			Help: "Remaining reward budget for the current cycle, in VERD.",
		}),
		rewardsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reward_cycle_rewards_total_verd",
			Help: "Allocated reward budget for the current cycle, in VERD.",
		}),
	}

	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
		m.submissions,
		m.registrations,
		m.batchItems,
		m.currentCycle,
		m.rewardsLeft,
		m.rewardsTotal,
	)

	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementInFlight marks a request as in flight.
func (m *Metrics) IncrementInFlight() { m.httpInFlight.Inc() }

// DecrementInFlight marks a request as completed.
func (m *Metrics) DecrementInFlight() { m.httpInFlight.Dec() }

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(service, method, path, status).Inc()
	m.httpDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordSubmission records a pipeline outcome.
func (m *Metrics) RecordSubmission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

// RecordRegistration records a ledger registration result.
func (m *Metrics) RecordRegistration(result string) {
	m.registrations.WithLabelValues(result).Inc()
}

// RecordBatchItem records a single batch item result.
func (m *Metrics) RecordBatchItem(result string) {
	m.batchItems.WithLabelValues(result).Inc()
}

// SetCycleStatus updates the cycle gauges from a fresh ledger read.
func (m *Metrics) SetCycleStatus(cycle uint64, rewardsTotal, rewardsLeft float64) {
	m.currentCycle.Set(float64(cycle))
	m.rewardsTotal.Set(rewardsTotal)
	m.rewardsLeft.Set(rewardsLeft)
}
