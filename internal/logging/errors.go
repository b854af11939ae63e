package logging

import apperrors "vertex-relay/internal/errors"

// ErrorKind normalizes error categories for logs and metrics.
// Errors report their relay kind; otherwise the upstream status decides.
func ErrorKind(status int, err error) string {
	if err != nil {
		return string(apperrors.KindOf(err))
	}
	switch {
	case status == 429:
		return "upstream_429"
	case status == 401:
		return "upstream_401"
	case status == 403:
		return "upstream_403"
	case status >= 500 && status < 600:
		return "upstream_5xx"
	case status >= 400 && status < 500:
		return "upstream_4xx"
	}
	return "ok"
}
