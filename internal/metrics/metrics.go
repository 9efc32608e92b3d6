// Package metrics provides Prometheus metrics for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label cardinality is bounded: endpoint is a fixed short name, never a URL.
var (
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ftv2g_upstream_requests_total",
		Help: "Total upstream API requests, by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ftv2g_upstream_request_duration_seconds",
		Help:    "Upstream request latencies in seconds, by endpoint.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ftv2g_logins_total",
		Help: "Total login attempts, by result (success, failure, probe).",
	}, []string{"result"})

	Retries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ftv2g_upstream_retries_total",
		Help: "Total re-login-and-retry cycles taken by the request wrapper.",
	})

	Channels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ftv2g_channels",
		Help: "Number of channels in the most recent upstream listing.",
	})

	Playbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ftv2g_playback_resolutions_total",
		Help: "Total playback resolution attempts, by outcome.",
	}, []string{"outcome"})
)

// RecordUpstream records one upstream request with its latency.
func RecordUpstream(endpoint, outcome string, seconds float64) {
	UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	UpstreamDuration.WithLabelValues(endpoint).Observe(seconds)
}

// RecordLogin counts a login attempt result.
func RecordLogin(result string) {
	Logins.WithLabelValues(result).Inc()
}

// RecordRetry counts one re-login-and-retry cycle.
func RecordRetry() {
	Retries.Inc()
}

// RecordChannels updates the channel count gauge.
func RecordChannels(n int) {
	Channels.Set(float64(n))
}

// RecordPlayback counts a playback resolution outcome.
func RecordPlayback(outcome string) {
	Playbacks.WithLabelValues(outcome).Inc()
}
