package upstream

import (
	"net/http"
	"net/url"

	"vertex-relay/internal/credential"
	apperrors "vertex-relay/internal/errors"
	"vertex-relay/internal/relay"

	"github.com/tidwall/sjson"
)

// Call is one fully built upstream request. It is immutable: accessors
// return copies.
type Call struct {
	endpoint url.URL
	payload  []byte
	headers  http.Header
	model    string
}

// BuildCall combines the target, the validated request and the credential.
func BuildCall(target Target, req *relay.Request, cred *credential.Credential) (*Call, error) {
	if req == nil {
		return nil, apperrors.Validation("Prompt is required")
	}
	if cred == nil || cred.Token == "" {
		return nil, apperrors.New(apperrors.KindCredential, "failed to acquire credential")
	}
	endpoint, err := target.Endpoint()
	if err != nil {
		return nil, err
	}
	payload, err := buildPayload(req.Prompt)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to build upstream payload", err)
	}
	return &Call{
		endpoint: *endpoint,
		payload:  payload,
		headers:  defaultHeaders(cred.AuthorizationHeader(), target.Project),
		model:    target.Model,
	}, nil
}

// buildPayload produces a single-turn request:
// {"contents":[{"role":"user","parts":[{"text":prompt}]}]}
func buildPayload(prompt string) ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "contents.0.role", "user")
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "contents.0.parts.0.text", prompt)
}

// Endpoint returns a copy of the request URL.
func (c *Call) Endpoint() *url.URL {
	u := c.endpoint
	return &u
}

// Payload returns a copy of the request body.
func (c *Call) Payload() []byte {
	return append([]byte(nil), c.payload...)
}

// Headers returns a copy of the request headers.
func (c *Call) Headers() http.Header {
	return c.headers.Clone()
}

// Model names the target model, for logs and metrics.
func (c *Call) Model() string { return c.model }
