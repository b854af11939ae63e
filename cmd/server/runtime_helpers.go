package main

import (
	"context"
	"net/http"

	"vertex-relay/internal/config"
	"vertex-relay/internal/constants"
	"vertex-relay/internal/events"

	log "github.com/sirupsen/logrus"
)

func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: constants.ServerReadHeaderTimeout,
	}
}

// startEventSinks attaches the optional Redis publisher to hub and returns its closer.
// A Redis outage at startup disables the sink instead of failing the relay.
func startEventSinks(ctx context.Context, cfg config.EventsConfig, hub *events.Hub) func() {
	if cfg.RedisAddr == "" {
		return func() {}
	}
	pub, err := events.NewRedisPublisher(ctx, events.RedisOptions{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		Channel:   cfg.RedisChannel,
		QueueSize: cfg.QueueSize,
	})
	if err != nil {
		log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis event sink disabled")
		return func() {}
	}
	detach := pub.Attach(hub)
	log.WithFields(log.Fields{"addr": cfg.RedisAddr, "channel": cfg.RedisChannel}).Info("redis event sink enabled")
	return func() {
		detach()
		if err := pub.Close(); err != nil {
			log.WithError(err).Warn("failed to close redis event sink")
		}
	}
}
