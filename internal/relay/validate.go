package relay

import (
	"strings"

	apperrors "vertex-relay/internal/errors"

	"github.com/tidwall/gjson"
)

// Request is a validated inbound generation request.
type Request struct {
	// Prompt is forwarded exactly as received; trimming is only used to reject blanks.
	Prompt string
}

// Validate checks that raw is a JSON object carrying a non-blank string prompt.
// It performs no network I/O.
func Validate(raw []byte) (*Request, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil, apperrors.Validation("Invalid JSON body")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, apperrors.Validation("Invalid JSON body")
	}
	prompt := root.Get("prompt")
	if !prompt.Exists() || prompt.Type == gjson.Null {
		return nil, apperrors.Validation("Prompt is required")
	}
	if prompt.Type != gjson.String {
		return nil, apperrors.Validation("Prompt must be a string")
	}
	if strings.TrimSpace(prompt.Str) == "" {
		return nil, apperrors.Validation("Prompt is required")
	}
	return &Request{Prompt: prompt.Str}, nil
}
