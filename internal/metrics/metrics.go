// Package metrics holds the prometheus collectors of the API and worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	SessionValidations *prometheus.CounterVec
	GateDecisions      *prometheus.CounterVec
	Logins             *prometheus.CounterVec
	Notifications      *prometheus.CounterVec
	JobsProcessed      *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drrav_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "drrav_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SessionValidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drrav_session_validations_total",
			Help: "Session token validations by outcome",
		}, []string{"status", "reason"}),
		GateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drrav_gate_decisions_total",
			Help: "Route gate decisions by state and requirement",
		}, []string{"state", "requirement"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drrav_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drrav_notifications_total",
			Help: "Notification deliveries by channel and outcome",
		}, []string{"channel", "outcome"}),
		JobsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "drrav_jobs_processed_total",
			Help: "Stream jobs processed by type and outcome",
		}, []string{"type", "outcome"}),
	}
}
