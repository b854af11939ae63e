package middleware

import (
	"math"
	"time"

	"vertex-relay/internal/monitoring"

	"github.com/gin-gonic/gin"
)

// OutcomeStateKey is set by the relay handler so request logs carry the stream outcome.
const OutcomeStateKey = "relay_state"

// Metrics is an HTTP middleware to track per-route counters and latency histogram.
// Streams broken off after commit are counted under status_class "aborted".
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		monitoring.HTTPInFlight.Inc()

		defer func() {
			monitoring.HTTPInFlight.Dec()
			rec := recover()
			status, aborted := finalStatus(c, rec)
			path := c.FullPath()
			if path == "" {
				path = "unmatched"
			}
			sc := monitoring.StatusClass(status)
			if aborted {
				sc = "aborted"
			}
			monitoring.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, sc).Inc()
			monitoring.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, sc).Observe(safeSeconds(time.Since(start)))
			if rec != nil {
				panic(rec)
			}
		}()

		c.Next()
	}
}

func safeSeconds(d time.Duration) float64 {
	s := d.Seconds()
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
		return 0
	}
	return s
}
