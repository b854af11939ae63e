package config

// ServerConfig controls the inbound HTTP listener.
type ServerConfig struct {
	Host       string `yaml:"host" json:"host"`
	Port       int    `yaml:"port" json:"port"`
	BasePath   string `yaml:"base_path" json:"base_path"`
	RelayRoute string `yaml:"relay_route" json:"relay_route"`
	// MaxRPS enables a single process-wide overload guard when > 0.
	MaxRPS      float64 `yaml:"max_rps" json:"max_rps"`
	Burst       int     `yaml:"burst" json:"burst"`
	CORSEnabled bool    `yaml:"cors_enabled" json:"cors_enabled"`
}

// UpstreamConfig identifies the streaming endpoint and tunes the outbound transport.
type UpstreamConfig struct {
	Project   string `yaml:"project" json:"project"`
	Location  string `yaml:"location" json:"location"`
	Publisher string `yaml:"publisher" json:"publisher"`
	Model     string `yaml:"model" json:"model"`
	// BaseURL overrides the regional aiplatform host (tests, private endpoints).
	BaseURL  string `yaml:"base_url" json:"base_url"`
	ProxyURL string `yaml:"proxy_url" json:"proxy_url"`

	DialTimeoutSec           int   `yaml:"dial_timeout_sec" json:"dial_timeout_sec"`
	TLSHandshakeTimeoutSec   int   `yaml:"tls_handshake_timeout_sec" json:"tls_handshake_timeout_sec"`
	ResponseHeaderTimeoutSec int   `yaml:"response_header_timeout_sec" json:"response_header_timeout_sec"`
	ExpectContinueTimeoutSec int   `yaml:"expect_continue_timeout_sec" json:"expect_continue_timeout_sec"`
	MaxErrorBodyBytes        int64 `yaml:"max_error_body_bytes" json:"max_error_body_bytes"`
}

// CredentialConfig selects how the relay obtains its upstream bearer token.
type CredentialConfig struct {
	// Mode is one of: adc, service_account, refresh_token, static.
	Mode            string   `yaml:"mode" json:"mode"`
	CredentialsFile string   `yaml:"credentials_file" json:"credentials_file"`
	ClientID        string   `yaml:"client_id" json:"client_id"`
	ClientSecret    string   `yaml:"client_secret" json:"client_secret"`
	RefreshToken    string   `yaml:"refresh_token" json:"refresh_token"`
	TokenURL        string   `yaml:"token_url" json:"token_url"`
	Token           string   `yaml:"token" json:"token"`
	Scopes          []string `yaml:"scopes" json:"scopes"`
	// DisableTokenReuse forces a token fetch on every acquisition.
	DisableTokenReuse bool `yaml:"disable_token_reuse" json:"disable_token_reuse"`
}

// RelayConfig tunes the byte-stream relay.
type RelayConfig struct {
	ChunkSize    int   `yaml:"chunk_size" json:"chunk_size"`
	MaxBodyBytes int64 `yaml:"max_body_bytes" json:"max_body_bytes"`
	// TimeoutSec is 0 for no timeout; otherwise it starts at dispatch time.
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec"`
}

// SecurityConfig groups inbound access control and diagnostics toggles.
type SecurityConfig struct {
	Debug   bool   `yaml:"debug" json:"debug"`
	LogFile string `yaml:"log_file" json:"log_file"`
	// APIKeyHashes are bcrypt hashes of accepted client keys; empty disables auth.
	APIKeyHashes []string `yaml:"api_key_hashes" json:"api_key_hashes"`
}

// EventsConfig configures outcome event fan-out.
type EventsConfig struct {
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password" json:"redis_password"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
	RedisChannel  string `yaml:"redis_channel" json:"redis_channel"`
	QueueSize     int    `yaml:"queue_size" json:"queue_size"`
}

// TracingConfig configures the OTLP exporter.
type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure" json:"insecure"`
}
