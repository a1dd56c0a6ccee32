// Package metrics provides Prometheus metrics for the canvas agent.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	ActionsTotal   *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	DedupeHits     *prometheus.CounterVec
	ItemsCurrent   prometheus.Gauge
	SyncClients    prometheus.Gauge
	ErrorsTotal    *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvas_actions_total",
				Help: "Total number of action invocations by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canvas_action_duration_seconds",
				Help:    "Action dispatch duration by action.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		DedupeHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvas_dedupe_hits_total",
				Help: "Creations answered from idempotency guard memory, by rule.",
			},
			[]string{"rule"},
		),
		ItemsCurrent: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "canvas_items_current",
				Help: "Number of items currently on the canvas.",
			},
		),
		SyncClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "canvas_sync_clients",
				Help: "Connected websocket snapshot subscribers.",
			},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvas_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.ActionsTotal)
	reg.MustRegister(m.ActionDuration)
	reg.MustRegister(m.DedupeHits)
	reg.MustRegister(m.ItemsCurrent)
	reg.MustRegister(m.SyncClients)
	reg.MustRegister(m.ErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAction increments the action counter.
func (m *Metrics) RecordAction(action, outcome string) {
	m.ActionsTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveActionDuration records one action dispatch duration.
func (m *Metrics) ObserveActionDuration(action string, d time.Duration) {
	m.ActionDuration.WithLabelValues(action).Observe(d.Seconds())
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
