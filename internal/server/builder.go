package server

import (
	"vertex-relay/internal/config"
	"vertex-relay/internal/credential"
	"vertex-relay/internal/events"
	relayh "vertex-relay/internal/handlers/relay"
	mw "vertex-relay/internal/middleware"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Dependencies encapsulates runtime services required to build the HTTP engine.
type Dependencies struct {
	Config      config.Source
	Credentials credential.Provider
	Dispatcher  relayh.Dispatcher
	Events      events.Publisher
	// HandlerOptions are passed through to the relay handler.
	HandlerOptions []relayh.Option
}

// BuildEngine constructs the gin engine serving the relay endpoint plus
// health and metrics routes. Routes are fixed at build time; limits, keys
// and upstream target are read from deps.Config per request.
func BuildEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config.Current()
	engine := gin.New()
	applyStandardEngineSettings(engine, cfg)

	root := engine.Group(cfg.Server.BasePath)
	registerHealthRoutes(root, deps)
	root.GET("/metrics", mw.MetricsHandler)

	route := cfg.Server.RelayRoute
	if route == "" {
		route = config.DefaultRelayRoute
	}
	h := relayh.New(deps.Config, deps.Credentials, deps.Dispatcher, deps.Events, deps.HandlerOptions...)
	api := root.Group("", mw.OverloadGuard(deps.Config), mw.APIKeyAuth(deps.Config))
	api.POST(route, h.Generate)

	log.WithFields(log.Fields{
		"route":     joinBasePath(cfg.Server.BasePath, route),
		"api_keys":  len(cfg.Security.APIKeyHashes),
		"max_rps":   cfg.Server.MaxRPS,
		"cors":      cfg.Server.CORSEnabled,
		"provider":  providerName(deps.Credentials),
		"base_path": cfg.Server.BasePath,
	}).Info("relay routes registered")
	return engine
}

func providerName(p credential.Provider) string {
	if p == nil {
		return "none"
	}
	return p.Name()
}
