package common

import (
	"net/http"

	apperrors "vertex-relay/internal/errors"

	"github.com/gin-gonic/gin"
)

// AbortWithRelayError translates err and writes the JSON error body.
// It must not be used once the success status has been committed.
func AbortWithRelayError(c *gin.Context, err error) {
	status, body := apperrors.Translate(err)
	if status == apperrors.StatusClientClosedRequest {
		// Nobody is listening; leave the response untouched.
		c.Abort()
		return
	}
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(safeStatus(status), body)
}

// AbortWithError writes a plain {error} body with the given status.
func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(safeStatus(status), apperrors.ErrorBody{Error: firstNonEmpty(message, "internal error")})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func safeStatus(status int) int {
	if status >= 400 && status <= 599 {
		return status
	}
	return http.StatusInternalServerError
}
