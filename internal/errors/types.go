package errors

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the relay can produce.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConfiguration  Kind = "configuration"
	KindCredential     Kind = "credential"
	KindUpstreamStatus Kind = "upstream_status"
	KindTransport      Kind = "transport"
	KindUpstreamStream Kind = "upstream_stream"
	KindTimeout        Kind = "timeout"
	KindCancelled      Kind = "cancelled"
	KindInternal       Kind = "internal"
)

// ErrRelayTimeout is the context cause used when the optional relay timeout expires.
var ErrRelayTimeout = errors.New("relay timeout exceeded")

// RelayError is the typed error crossing package boundaries inside the relay.
type RelayError struct {
	Kind    Kind
	Message string
	// Details carries upstream-provided diagnostic text, verbatim.
	Details string
	// Status overrides the translated HTTP status when non-zero.
	Status int
	// Reason is a short machine label (e.g. "dns", "conn_refused") for logs and metrics.
	Reason string
	Err    error
}

func (e *RelayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RelayError) Unwrap() error { return e.Err }

// New constructs a RelayError without a cause.
func New(kind Kind, message string) *RelayError {
	return &RelayError{Kind: kind, Message: message}
}

// Wrap constructs a RelayError around err.
func Wrap(kind Kind, message string, err error) *RelayError {
	return &RelayError{Kind: kind, Message: message, Err: err}
}

// Validation reports a malformed inbound request.
func Validation(message string) *RelayError { return New(KindValidation, message) }

// Configuration reports a missing or invalid server-side setting.
func Configuration(message string) *RelayError { return New(KindConfiguration, message) }

// UpstreamStatus captures a non-success upstream response and its body.
func UpstreamStatus(status int, body []byte) *RelayError {
	return &RelayError{
		Kind:    KindUpstreamStatus,
		Message: "Upstream error",
		Details: string(body),
		Reason:  fmt.Sprintf("status_%d", status),
	}
}

// KindOf returns the Kind of err, or KindInternal when err is not a RelayError.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var re *RelayError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a RelayError of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
