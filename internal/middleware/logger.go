package middleware

import (
	"net/http"
	"time"

	"vertex-relay/internal/logging"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs one line per HTTP request, including requests whose
// handler panicked or broke the connection after committing a status.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		defer func() {
			rec := recover()
			status, aborted := finalStatus(c, rec)
			extras := log.Fields{
				"status":     status,
				"latency_ms": logging.DurationMS(time.Since(start)),
				"user_agent": c.Request.UserAgent(),
				"method":     method,
				"path":       path,
				"bytes_out":  c.Writer.Size(),
			}
			if state, ok := c.Get(OutcomeStateKey); ok {
				extras["relay_state"] = state
			}
			if aborted {
				extras["aborted"] = true
			}
			entry := logging.WithReq(c, extras)
			if status >= 500 || aborted {
				entry.Warn("http_request")
			} else {
				entry.Info("http_request")
			}
			if rec != nil {
				panic(rec)
			}
		}()

		c.Next()
	}
}

// finalStatus reports the status a request ended with. A panic before any
// write will become a 500 in Recovery; http.ErrAbortHandler marks a response
// cut short after its status was committed.
func finalStatus(c *gin.Context, rec any) (int, bool) {
	if rec == nil {
		return c.Writer.Status(), false
	}
	if rec == http.ErrAbortHandler {
		return c.Writer.Status(), true
	}
	if !c.Writer.Written() {
		return http.StatusInternalServerError, false
	}
	return c.Writer.Status(), true
}
