package middleware

import (
	"time"

	"vertex-relay/internal/monitoring"
)

// RecordRelayOutcome records the terminal state of one stream.
func RecordRelayOutcome(state, kind string, chunks int, bytes int64, dur time.Duration) {
	monitoring.RelayOutcomesTotal.WithLabelValues(state, kind).Inc()
	if chunks > 0 {
		monitoring.RelayChunksTotal.Add(float64(chunks))
	}
	if bytes > 0 {
		monitoring.RelayBytesTotal.Add(float64(bytes))
	}
	monitoring.RelayStreamDuration.WithLabelValues(state).Observe(safeSeconds(dur))
}

// TrackActiveStream increments the active stream gauge and returns its release.
func TrackActiveStream() func() {
	monitoring.RelayActiveStreams.Inc()
	return monitoring.RelayActiveStreams.Dec
}

// RecordEventPublish records one outbound event delivery attempt.
func RecordEventPublish(sink string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	monitoring.EventsPublishedTotal.WithLabelValues(sink, result).Inc()
}

// RecordEventDropped records an event discarded because the queue was full.
func RecordEventDropped(sink string) {
	monitoring.EventsDroppedTotal.WithLabelValues(sink).Inc()
}

// RecordConfigReload counts successful configuration reloads.
func RecordConfigReload() {
	monitoring.ConfigReloadsTotal.Inc()
}
