// Package metrics exposes Prometheus collectors for the origin server.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	originRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "origind_requests_total",
			Help: "Total origin requests, labeled by host and outcome.",
		},
		[]string{"host", "outcome"},
	)

	originResolveSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "origind_resolve_duration_seconds",
			Help:    "Histogram of mount resolution latencies, labeled by outcome.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"outcome"},
	)

	originMountsRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "origind_mounts_registered",
			Help: "Number of mounts currently registered across all virtual hosts.",
		},
	)

	nameresQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "origind_dns_queries_total",
			Help: "Total DNS queries answered, labeled by result.",
		},
		[]string{"result"},
	)

	acquisitionClonesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "origind_clones_total",
			Help: "Total clone attempts, labeled by status.",
		},
		[]string{"status"},
	)

	acquisitionCloneSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "origind_clone_duration_seconds",
			Help:    "Histogram of clone durations.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	lifecycleTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "origind_lifecycle_transitions_total",
			Help: "Lifecycle transitions, labeled by service and transition.",
		},
		[]string{"service", "transition"},
	)
)

// Handler returns an http.Handler exposing the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SanitizeHost lowercases a Host header and strips any port suffix so label
// cardinality stays bounded to registered hostnames.
func SanitizeHost(host string) string {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		return "unknown"
	}
	return host
}

// ObserveRequest records one origin request and its resolution latency.
func ObserveRequest(host, outcome string, duration time.Duration) {
	originRequestsTotal.WithLabelValues(SanitizeHost(host), outcome).Inc()
	originResolveSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// SetMountsRegistered updates the registered-mounts gauge.
func SetMountsRegistered(n int) {
	originMountsRegistered.Set(float64(n))
}

// ObserveQuery records one answered DNS query.
func ObserveQuery(result string) {
	nameresQueriesTotal.WithLabelValues(result).Inc()
}

// ObserveClone records one clone attempt.
func ObserveClone(status string, duration time.Duration) {
	acquisitionClonesTotal.WithLabelValues(status).Inc()
	acquisitionCloneSeconds.Observe(duration.Seconds())
}

// ObserveTransition records a lifecycle transition for a service.
func ObserveTransition(service, transition string) {
	lifecycleTransitionsTotal.WithLabelValues(service, transition).Inc()
}
