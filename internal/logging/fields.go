package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// WithReq builds a log entry enriched with common HTTP request fields.
// Fields:
// - request_id: X-Request-ID or generated in middleware
// - method, path, ip
// Any extras passed in will be merged (extras take precedence on key conflicts).
func WithReq(c *gin.Context, extras log.Fields) *log.Entry {
	if c == nil || c.Request == nil {
		return log.WithFields(extras)
	}
	path := c.FullPath()
	if path == "" && c.Request.URL != nil {
		path = c.Request.URL.Path
	}
	fields := log.Fields{
		"request_id": RequestID(c),
		"method":     c.Request.Method,
		"path":       path,
		"ip":         c.ClientIP(),
	}
	for k, v := range extras {
		fields[k] = v
	}
	return log.WithFields(fields)
}

// RequestID returns the id set by the request-id middleware, or "".
func RequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if v, ok := c.Get(RequestIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// DurationMS converts a duration to integer milliseconds for logging.
func DurationMS(d time.Duration) int64 { return d.Milliseconds() }
