package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_class"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"method", "path", "status_class"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_http_inflight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Credential acquisition
	CredentialAcquireTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_credential_acquire_total",
			Help: "Credential acquisitions by provider and result",
		},
		[]string{"provider", "result"},
	)

	CredentialAcquireDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_credential_acquire_duration_seconds",
			Help:    "Credential acquisition latency in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"provider"},
	)

	// Upstream dispatch
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_upstream_requests_total",
			Help: "Total number of upstream requests",
		},
		[]string{"model", "status_class"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_upstream_time_to_headers_seconds",
			Help:    "Time from dispatch until upstream response headers",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"model"},
	)

	UpstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_upstream_errors_total",
			Help: "Upstream failures by error kind and reason",
		},
		[]string{"kind", "reason"},
	)

	// Stream relay
	RelayOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_outcomes_total",
			Help: "Relay terminal outcomes",
		},
		[]string{"state", "kind"},
	)

	RelayChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_chunks_forwarded_total",
			Help: "Chunks forwarded to clients",
		},
	)

	RelayBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_bytes_forwarded_total",
			Help: "Bytes forwarded to clients",
		},
	)

	RelayStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_stream_duration_seconds",
			Help:    "Duration of the streaming phase",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"state"},
	)

	RelayActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_active_streams",
			Help: "Streams currently being relayed",
		},
	)

	// Overload guard
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_rate_limited_total",
			Help: "Requests rejected by the overload guard",
		},
	)

	// Outcome events
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_published_total",
			Help: "Outcome events published to the external bus",
		},
		[]string{"sink", "result"},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_dropped_total",
			Help: "Outcome events dropped because the queue was full",
		},
		[]string{"sink"},
	)

	ConfigReloadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_config_reloads_total",
			Help: "Successful configuration reloads",
		},
	)
)

// StatusClass buckets an HTTP status into "2xx".."5xx"; 0 means no response.
func StatusClass(status int) string {
	switch {
	case status <= 0:
		return "none"
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
