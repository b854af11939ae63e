package errors

import (
	"errors"
	"net/http"
)

// StatusClientClosedRequest is used only for logs and metrics when the client went away.
const StatusClientClosedRequest = 499

// ErrorBody is the JSON shape of every non-streamed failure response.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Translate maps any error to the HTTP status and body sent to the client.
// It must only be used before the response status has been committed.
func Translate(err error) (int, ErrorBody) {
	var re *RelayError
	if !errors.As(err, &re) {
		msg := "unknown error"
		if err != nil {
			msg = err.Error()
		}
		return http.StatusInternalServerError, ErrorBody{Error: "unhandled error", Details: msg}
	}

	switch re.Kind {
	case KindValidation:
		return withOverride(re, http.StatusBadRequest), ErrorBody{Error: firstNonEmpty(re.Message, "Invalid request")}
	case KindConfiguration:
		return withOverride(re, http.StatusInternalServerError), ErrorBody{Error: firstNonEmpty(re.Message, "Server misconfigured")}
	case KindCredential:
		return withOverride(re, http.StatusInternalServerError), ErrorBody{Error: "failed to acquire credential"}
	case KindUpstreamStatus:
		return withOverride(re, http.StatusBadGateway), ErrorBody{Error: "Upstream error", Details: re.Details}
	case KindTransport:
		return withOverride(re, http.StatusBadGateway), ErrorBody{Error: firstNonEmpty(re.Message, "Upstream unreachable")}
	case KindTimeout:
		return withOverride(re, http.StatusGatewayTimeout), ErrorBody{Error: firstNonEmpty(re.Message, "Upstream timeout")}
	case KindCancelled:
		return StatusClientClosedRequest, ErrorBody{Error: "request cancelled"}
	default:
		detail := re.Message
		if re.Err != nil {
			detail = re.Err.Error()
		}
		return withOverride(re, http.StatusInternalServerError), ErrorBody{Error: "unhandled error", Details: detail}
	}
}

func withOverride(re *RelayError, def int) int {
	if re.Status >= 400 && re.Status <= 599 {
		return re.Status
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
