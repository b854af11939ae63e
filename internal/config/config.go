package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration, grouped by domain.
// A *Config obtained from a Manager is a snapshot and must not be mutated.
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream" json:"upstream"`
	Credential CredentialConfig `yaml:"credential" json:"credential"`
	Relay      RelayConfig      `yaml:"relay" json:"relay"`
	Security   SecurityConfig   `yaml:"security" json:"security"`
	Events     EventsConfig     `yaml:"events" json:"events"`
	Tracing    TracingConfig    `yaml:"tracing" json:"tracing"`
}

// Load reads path (YAML or JSON), applies environment overrides and defaults.
// A missing file is not an error: the configuration then comes from env and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if strings.TrimSpace(path) != "" {
		if err := readFile(path, cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			log.WithField("path", path).Warn("config file not found; using environment and defaults")
		}
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if res := cfg.Validate(); !res.Valid {
		return nil, res.Err()
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can derive a modified snapshot.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Credential.Scopes = append([]string(nil), c.Credential.Scopes...)
	out.Security.APIKeyHashes = append([]string(nil), c.Security.APIKeyHashes...)
	return &out
}

// ListenAddr returns host:port for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
