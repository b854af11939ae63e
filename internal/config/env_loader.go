package config

// applyEnv overlays environment variables on top of file values.
// RELAY_* names win over the conventional Google Cloud variables.
func applyEnv(cfg *Config) {
	applyServerEnv(cfg)
	applyUpstreamEnv(cfg)
	applyCredentialEnv(cfg)
	applyRelayEnv(cfg)
	applySecurityEnv(cfg)
	applyEventsEnv(cfg)
	applyTracingEnv(cfg)
}

func applyServerEnv(cfg *Config) {
	setStringFromEnv(func(v string) { cfg.Server.Host = v }, "RELAY_HOST")
	setIntFromEnv("RELAY_PORT", func(n int) { cfg.Server.Port = n })
	setStringFromEnv(func(v string) { cfg.Server.BasePath = v }, "RELAY_BASE_PATH")
	setStringFromEnv(func(v string) { cfg.Server.RelayRoute = v }, "RELAY_ROUTE")
	setFloatFromEnv("RELAY_MAX_RPS", func(f float64) { cfg.Server.MaxRPS = f })
	setIntFromEnv("RELAY_BURST", func(n int) { cfg.Server.Burst = n })
	setToggleFromEnv("RELAY_CORS_ENABLED", func(b bool) { cfg.Server.CORSEnabled = b })
}

func applyUpstreamEnv(cfg *Config) {
	setStringFromEnv(func(v string) { cfg.Upstream.Project = v }, "RELAY_PROJECT", "GOOGLE_CLOUD_PROJECT")
	setStringFromEnv(func(v string) { cfg.Upstream.Location = v }, "RELAY_LOCATION", "GOOGLE_CLOUD_LOCATION")
	setStringFromEnv(func(v string) { cfg.Upstream.Publisher = v }, "RELAY_PUBLISHER")
	setStringFromEnv(func(v string) { cfg.Upstream.Model = v }, "RELAY_MODEL")
	setStringFromEnv(func(v string) { cfg.Upstream.BaseURL = v }, "RELAY_UPSTREAM_BASE_URL")
	setStringFromEnv(func(v string) { cfg.Upstream.ProxyURL = v }, "RELAY_PROXY_URL")
	setIntFromEnv("RELAY_DIAL_TIMEOUT_SEC", func(n int) { cfg.Upstream.DialTimeoutSec = n })
	setIntFromEnv("RELAY_TLS_HANDSHAKE_TIMEOUT_SEC", func(n int) { cfg.Upstream.TLSHandshakeTimeoutSec = n })
	setIntFromEnv("RELAY_RESPONSE_HEADER_TIMEOUT_SEC", func(n int) { cfg.Upstream.ResponseHeaderTimeoutSec = n })
	setInt64FromEnv("RELAY_MAX_ERROR_BODY_BYTES", func(n int64) { cfg.Upstream.MaxErrorBodyBytes = n })
}

func applyCredentialEnv(cfg *Config) {
	setStringFromEnv(func(v string) { cfg.Credential.Mode = v }, "RELAY_CREDENTIAL_MODE")
	setStringFromEnv(func(v string) { cfg.Credential.CredentialsFile = v }, "RELAY_CREDENTIALS_FILE")
	setStringFromEnv(func(v string) { cfg.Credential.ClientID = v }, "RELAY_OAUTH_CLIENT_ID")
	setStringFromEnv(func(v string) { cfg.Credential.ClientSecret = v }, "RELAY_OAUTH_CLIENT_SECRET")
	setStringFromEnv(func(v string) { cfg.Credential.RefreshToken = v }, "RELAY_OAUTH_REFRESH_TOKEN")
	setStringFromEnv(func(v string) { cfg.Credential.TokenURL = v }, "RELAY_OAUTH_TOKEN_URL")
	setStringFromEnv(func(v string) { cfg.Credential.Token = v }, "RELAY_ACCESS_TOKEN")
	setStringFromEnv(func(v string) { cfg.Credential.Scopes = splitAndTrim(v, ",") }, "RELAY_CREDENTIAL_SCOPES")
	setToggleFromEnv("RELAY_DISABLE_TOKEN_REUSE", func(b bool) { cfg.Credential.DisableTokenReuse = b })
}

func applyRelayEnv(cfg *Config) {
	setIntFromEnv("RELAY_CHUNK_SIZE", func(n int) { cfg.Relay.ChunkSize = n })
	setInt64FromEnv("RELAY_MAX_BODY_BYTES", func(n int64) { cfg.Relay.MaxBodyBytes = n })
	setIntFromEnv("RELAY_TIMEOUT_SEC", func(n int) { cfg.Relay.TimeoutSec = n })
}

func applySecurityEnv(cfg *Config) {
	setToggleFromEnv("RELAY_DEBUG", func(b bool) { cfg.Security.Debug = b })
	setStringFromEnv(func(v string) { cfg.Security.LogFile = v }, "RELAY_LOG_FILE")
	setStringFromEnv(func(v string) { cfg.Security.APIKeyHashes = splitAndTrim(v, ",") }, "RELAY_API_KEY_HASHES")
}

func applyEventsEnv(cfg *Config) {
	setStringFromEnv(func(v string) { cfg.Events.RedisAddr = v }, "RELAY_REDIS_ADDR")
	setStringFromEnv(func(v string) { cfg.Events.RedisPassword = v }, "RELAY_REDIS_PASSWORD")
	setIntFromEnv("RELAY_REDIS_DB", func(n int) { cfg.Events.RedisDB = n })
	setStringFromEnv(func(v string) { cfg.Events.RedisChannel = v }, "RELAY_REDIS_CHANNEL")
}

func applyTracingEnv(cfg *Config) {
	setStringFromEnv(func(v string) { cfg.Tracing.OTLPEndpoint = v }, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setToggleFromEnv("OTEL_EXPORTER_OTLP_INSECURE", func(b bool) { cfg.Tracing.Insecure = b })
}
