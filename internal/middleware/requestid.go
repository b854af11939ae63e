package middleware

import (
	"strings"

	"vertex-relay/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID keeps a sane inbound X-Request-ID or generates a UUID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if rid == "" || len(rid) > maxRequestIDLen || strings.ContainsAny(rid, "\r\n") {
			rid = uuid.NewString()
		}
		c.Set(logging.RequestIDKey, rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Next()
	}
}
