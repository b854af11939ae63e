package upstream

import (
	"fmt"
	"net/url"
	"strings"

	"vertex-relay/internal/config"
	apperrors "vertex-relay/internal/errors"
)

// Target identifies one publisher model endpoint.
type Target struct {
	Project   string
	Location  string
	Publisher string
	Model     string
	// BaseURL replaces the regional host when set.
	BaseURL string
}

// TargetFromConfig extracts the target identifiers from a config snapshot.
func TargetFromConfig(cfg config.UpstreamConfig) Target {
	return Target{
		Project:   strings.TrimSpace(cfg.Project),
		Location:  strings.TrimSpace(cfg.Location),
		Publisher: strings.TrimSpace(cfg.Publisher),
		Model:     strings.TrimSpace(cfg.Model),
		BaseURL:   strings.TrimSpace(cfg.BaseURL),
	}
}

// Validate reports the first missing identifier as a configuration error.
func (t Target) Validate() error {
	switch {
	case t.Project == "":
		return apperrors.Configuration("Missing upstream project")
	case t.Location == "":
		return apperrors.Configuration("Missing upstream location")
	case t.Model == "":
		return apperrors.Configuration("Missing upstream model")
	}
	return nil
}

// Endpoint returns the streamGenerateContent URL for t.
func (t Target) Endpoint() (*url.URL, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	base := t.BaseURL
	if base == "" {
		base = regionalBaseURL(t.Location)
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperrors.Configuration(fmt.Sprintf("Invalid upstream base URL %q", base))
	}
	publisher := t.Publisher
	if publisher == "" {
		publisher = config.DefaultPublisher
	}
	u.Path += streamPath(t.Project, t.Location, publisher, t.Model)
	return u, nil
}
