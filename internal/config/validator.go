package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"vertex-relay/internal/constants"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s=%s]: %s", e.Field, e.Value, e.Message)
}

// ValidationResult holds the results of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
	Valid    bool
}

// AddError adds a validation error
func (r *ValidationResult) AddError(field, value, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message})
	r.Valid = false
}

// AddWarning adds a validation warning
func (r *ValidationResult) AddWarning(field, value, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Value: value, Message: message})
}

// Err joins all errors, or returns nil when the result is valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

var validModes = []string{ModeADC, ModeServiceAccount, ModeRefreshToken, ModeStatic}

// Validate checks structural settings. Missing upstream identifiers are only
// warnings here; requests report them as configuration errors.
func (c *Config) Validate() ValidationResult {
	result := ValidationResult{Valid: true}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		result.AddError("server.port", strconv.Itoa(c.Server.Port), "must be between 1 and 65535")
	}
	if !strings.HasPrefix(c.Server.RelayRoute, "/") {
		result.AddError("server.relay_route", c.Server.RelayRoute, "must start with '/'")
	}
	if c.Server.MaxRPS < 0 {
		result.AddError("server.max_rps", fmt.Sprint(c.Server.MaxRPS), "must not be negative")
	}

	if strings.TrimSpace(c.Upstream.Project) == "" {
		result.AddWarning("upstream.project", "", "not set; relay requests will fail until configured")
	}
	if strings.TrimSpace(c.Upstream.Location) == "" {
		result.AddWarning("upstream.location", "", "not set; relay requests will fail until configured")
	}
	if c.Upstream.BaseURL != "" {
		if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			result.AddError("upstream.base_url", c.Upstream.BaseURL, "must be an absolute URL")
		}
	}
	if c.Upstream.ProxyURL != "" {
		if _, err := url.Parse(c.Upstream.ProxyURL); err != nil {
			result.AddError("upstream.proxy_url", c.Upstream.ProxyURL, err.Error())
		}
	}
	for field, v := range map[string]int{
		"upstream.dial_timeout_sec":            c.Upstream.DialTimeoutSec,
		"upstream.tls_handshake_timeout_sec":   c.Upstream.TLSHandshakeTimeoutSec,
		"upstream.response_header_timeout_sec": c.Upstream.ResponseHeaderTimeoutSec,
		"upstream.expect_continue_timeout_sec": c.Upstream.ExpectContinueTimeoutSec,
		"relay.timeout_sec":                    c.Relay.TimeoutSec,
	} {
		if v < 0 {
			result.AddError(field, strconv.Itoa(v), "must not be negative")
		}
	}

	if !contains(validModes, c.Credential.Mode) {
		result.AddError("credential.mode", c.Credential.Mode, "must be one of: "+strings.Join(validModes, ", "))
	}
	switch c.Credential.Mode {
	case ModeServiceAccount:
		if c.Credential.CredentialsFile == "" {
			result.AddWarning("credential.credentials_file", "", "required for service_account mode")
		}
	case ModeRefreshToken:
		if c.Credential.ClientID == "" || c.Credential.ClientSecret == "" || c.Credential.RefreshToken == "" {
			result.AddWarning("credential.refresh_token", "", "client_id, client_secret and refresh_token are required")
		}
	case ModeStatic:
		if c.Credential.Token == "" {
			result.AddWarning("credential.token", "", "static mode without a token")
		}
	}

	if c.Relay.ChunkSize > constants.MaxChunkSize {
		result.AddError("relay.chunk_size", strconv.Itoa(c.Relay.ChunkSize), fmt.Sprintf("must not exceed %d", constants.MaxChunkSize))
	}

	for i, h := range c.Security.APIKeyHashes {
		if !strings.HasPrefix(h, "$2") {
			result.AddError(fmt.Sprintf("security.api_key_hashes[%d]", i), "<redacted>", "must be a bcrypt hash")
		}
	}

	if c.Events.RedisAddr != "" {
		if _, _, err := net.SplitHostPort(c.Events.RedisAddr); err != nil {
			result.AddError("events.redis_addr", c.Events.RedisAddr, "must be host:port")
		}
	}

	return result
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
