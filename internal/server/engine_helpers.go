package server

import (
	"strings"

	"vertex-relay/internal/config"
	mw "vertex-relay/internal/middleware"

	"github.com/gin-gonic/gin"
)

// applyStandardEngineSettings applies common Gin settings and middlewares.
func applyStandardEngineSettings(engine *gin.Engine, cfg *config.Config) {
	if !cfg.Security.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	_ = engine.SetTrustedProxies([]string{})

	engine.Use(mw.Recovery(), mw.RequestID(), mw.RequestLogger(), mw.Metrics())
	if cfg.Server.CORSEnabled {
		engine.Use(mw.CORS())
	}
}

func joinBasePath(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
