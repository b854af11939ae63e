package config

import "vertex-relay/internal/constants"

const (
	DefaultPort         = 8080
	DefaultRelayRoute   = "/api/generate"
	DefaultPublisher    = "google"
	DefaultModel        = "gemini-2.0-flash"
	DefaultMode         = ModeADC
	DefaultRedisChannel = "relay:outcomes"
	DefaultBurst        = 20
	CloudPlatformScope  = "https://www.googleapis.com/auth/cloud-platform"
)

// Credential modes.
const (
	ModeADC            = "adc"
	ModeServiceAccount = "service_account"
	ModeRefreshToken   = "refresh_token"
	ModeStatic         = "static"
)

// Project and location have no defaults: their absence is reported per request.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	cfg.Server.BasePath = normalizeBasePath(cfg.Server.BasePath)
	if cfg.Server.RelayRoute == "" {
		cfg.Server.RelayRoute = DefaultRelayRoute
	}
	if cfg.Server.MaxRPS > 0 && cfg.Server.Burst <= 0 {
		cfg.Server.Burst = DefaultBurst
	}

	if cfg.Upstream.Publisher == "" {
		cfg.Upstream.Publisher = DefaultPublisher
	}
	if cfg.Upstream.Model == "" {
		cfg.Upstream.Model = DefaultModel
	}
	if cfg.Upstream.MaxErrorBodyBytes <= 0 {
		cfg.Upstream.MaxErrorBodyBytes = constants.DefaultMaxErrorBodyBytes
	}

	if cfg.Credential.Mode == "" {
		cfg.Credential.Mode = DefaultMode
	}
	if len(cfg.Credential.Scopes) == 0 {
		cfg.Credential.Scopes = []string{CloudPlatformScope}
	}

	if cfg.Relay.ChunkSize <= 0 {
		cfg.Relay.ChunkSize = constants.DefaultChunkSize
	}
	if cfg.Relay.MaxBodyBytes <= 0 {
		cfg.Relay.MaxBodyBytes = constants.DefaultMaxBodyBytes
	}

	if cfg.Events.RedisChannel == "" {
		cfg.Events.RedisChannel = DefaultRedisChannel
	}
	if cfg.Events.QueueSize <= 0 {
		cfg.Events.QueueSize = constants.DefaultEventQueueSize
	}
}
