package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"vertex-relay/internal/config"
	"vertex-relay/internal/constants"
	"vertex-relay/internal/credential"
	"vertex-relay/internal/events"
	"vertex-relay/internal/logging"
	mw "vertex-relay/internal/middleware"
	tracing "vertex-relay/internal/monitoring/tracing"
	srv "vertex-relay/internal/server"
	"vertex-relay/internal/upstream"
	"vertex-relay/internal/version"

	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Version)
		return
	}

	manager, err := config.NewManager(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	defer manager.Stop()
	cfg := manager.Current()

	logCfg := cfg
	if *debug {
		logCfg = cfg.Clone()
		logCfg.Security.Debug = true
	}
	if err := logging.Setup(logCfg); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}
	defer logging.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traceShutdown, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		log.WithError(err).Warn("failed to initialize tracing")
	}
	if traceShutdown != nil {
		defer func() {
			if err := traceShutdown(context.Background()); err != nil {
				log.WithError(err).Warn("failed to shutdown tracing")
			}
		}()
	}

	provider, err := credential.NewProvider(ctx, cfg.Credential)
	if err != nil {
		log.WithError(err).Fatal("failed to configure credential provider")
	}

	eventHub := events.NewHub()
	manager.SetEventPublisher(eventHub)
	manager.OnChange(func(_, _ *config.Config) { mw.RecordConfigReload() })
	closePublisher := startEventSinks(ctx, cfg.Events, eventHub)
	defer closePublisher()
	if cfg.Security.Debug || *debug {
		eventHub.Subscribe(events.TopicConfigUpdated, func(_ context.Context, evt events.Event) {
			log.WithField("topic", evt.Topic).Debugf("config event: %v", evt.Payload)
		})
	}
	manager.Watch()

	engine := srv.BuildEngine(srv.Dependencies{
		Config:      manager,
		Credentials: provider,
		Dispatcher:  upstream.NewDispatcher(cfg.Upstream),
		Events:      eventHub,
	})

	httpSrv := newHTTPServer(cfg, engine)
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"addr":    httpSrv.Addr,
			"version": version.Version,
			"config":  *configPath,
			"model":   cfg.Upstream.Model,
		}).Info("relay listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.WithField("signal", s.String()).Info("shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("http server failed")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown incomplete")
	}
	log.Info("server stopped")
}
