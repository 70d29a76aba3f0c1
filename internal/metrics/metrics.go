// Package metrics defines the Prometheus instrumentation for the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationsTotal counts account registrations by method
	// (password, device, google, apple).
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_registrations_total",
			Help: "Total number of account registrations",
		},
		[]string{"method"},
	)

	// LoginsTotal counts password login attempts by outcome
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_logins_total",
			Help: "Total number of password login attempts",
		},
		[]string{"outcome"},
	)

	// TokensIssuedTotal counts tokens issued by purpose
	TokensIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_tokens_issued_total",
			Help: "Total number of tokens issued",
		},
		[]string{"purpose"},
	)

	// NotificationsCreatedTotal counts notifications created by type
	NotificationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"type"},
	)

	// UpstreamFallbacksTotal counts aggregation requests served from the
	// deterministic fallback payload instead of the upstream source
	UpstreamFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_upstream_fallbacks_total",
			Help: "Total number of upstream fetches degraded to fallback data",
		},
		[]string{"source"},
	)

	// RequestDuration tracks HTTP request handling time by route
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monitor_request_duration_seconds",
			Help:    "HTTP request handling duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)
