package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "vertex-relay/internal/errors"
	"vertex-relay/internal/logging"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Recovery turns a handler panic into a 500 {"error":"unhandled error"} response.
// http.ErrAbortHandler is re-raised so net/http can drop the connection, which
// is how a stream that already committed 200 signals truncation.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logging.WithReq(c, log.Fields{
				"error":      rec,
				"stack":      string(debug.Stack()),
				"user_agent": c.Request.UserAgent(),
			}).Error("panic recovered")

			if c.Writer.Written() {
				// Status already committed; the only honest signal left is a broken connection.
				panic(http.ErrAbortHandler)
			}
			c.Header("Cache-Control", "no-store")
			c.AbortWithStatusJSON(http.StatusInternalServerError, apperrors.ErrorBody{
				Error:   "unhandled error",
				Details: fmt.Sprint(rec),
			})
		}()

		c.Next()
	}
}
