package server

import (
	"net/http"

	"vertex-relay/internal/upstream"
	"vertex-relay/internal/version"

	"github.com/gin-gonic/gin"
)

func registerHealthRoutes(r gin.IRoutes, deps Dependencies) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Version})
	})

	// readyz reports whether a relay request could be dispatched right now.
	r.GET("/readyz", func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		if deps.Credentials == nil || deps.Dispatcher == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": "relay not wired"})
			return
		}
		target := upstream.TargetFromConfig(deps.Config.Current().Upstream)
		if _, err := target.Endpoint(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "ready",
			"model":      target.Model,
			"credential": deps.Credentials.Name(),
		})
	})
}
