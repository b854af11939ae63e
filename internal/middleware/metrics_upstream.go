package middleware

import (
	"time"

	"vertex-relay/internal/monitoring"
)

// RecordUpstream records time-to-headers and the status class for one dispatch.
func RecordUpstream(model string, dur time.Duration, status int, networkErr bool) {
	cls := monitoring.StatusClass(status)
	if networkErr {
		cls = "network_error"
	}
	monitoring.UpstreamRequestsTotal.WithLabelValues(model, cls).Inc()
	monitoring.UpstreamRequestDuration.WithLabelValues(model).Observe(safeSeconds(dur))
}

// RecordUpstreamError increments upstream errors by kind and reason.
func RecordUpstreamError(kind, reason string) {
	if reason == "" {
		reason = "other"
	}
	monitoring.UpstreamErrorsTotal.WithLabelValues(kind, reason).Inc()
}
