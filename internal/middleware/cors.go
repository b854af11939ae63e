package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS allows browser collaborators on other origins to call the relay.
// Credentials are never allowed with the wildcard origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Credentials", "false")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Authorization, X-API-Key, X-Request-ID")
		h.Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
