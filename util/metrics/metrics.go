// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "learnboard"

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Auth metrics
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts, by outcome (success, rejected, error).",
	}, []string{"outcome"})

	// Upstream metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of calls to the upstream auth and GraphQL endpoints.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	GraphQLForwards = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "graphql_forwards_total",
		Help:      "GraphQL requests forwarded upstream, by outcome.",
	}, []string{"outcome"})

	// Session metrics
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Sessions held by the session store after the last cleanup.",
	})
)

// ObserveUpstream records the duration of one upstream call started at start.
func ObserveUpstream(endpoint string, start time.Time) {
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
