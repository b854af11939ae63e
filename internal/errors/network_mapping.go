package errors

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// MapNetworkError classifies a transport failure that happened before any
// upstream response was received. ctx is the dispatch context; its cause
// distinguishes client cancellation from the relay timeout. Only the relay
// timeout yields KindTimeout; every other timeout is a 502 transport error.
func MapNetworkError(ctx context.Context, err error) *RelayError {
	if ctx != nil && ctx.Err() != nil {
		cause := context.Cause(ctx)
		if errors.Is(cause, ErrRelayTimeout) {
			return &RelayError{Kind: KindTimeout, Message: "Upstream timeout", Reason: "relay_timeout", Err: err}
		}
		if errors.Is(cause, context.DeadlineExceeded) {
			return &RelayError{Kind: KindTransport, Message: "Upstream connection timed out", Reason: "timeout", Status: http.StatusBadGateway, Err: err}
		}
		return &RelayError{Kind: KindCancelled, Message: "Request was canceled", Reason: "canceled", Err: err}
	}

	reason := classifyNetErr(err)
	re := &RelayError{Kind: KindTransport, Reason: reason, Err: err, Status: http.StatusBadGateway}
	switch reason {
	case "timeout":
		re.Message = "Upstream connection timed out"
	case "dns":
		re.Message = "Upstream host could not be resolved"
	case "conn_refused":
		re.Message = "Upstream connection refused"
	case "conn_reset":
		re.Message = "Upstream connection reset"
	case "tls":
		re.Message = "Upstream TLS handshake failed"
	default:
		re.Message = "Upstream request failed"
	}
	return re
}

func classifyNetErr(err error) string {
	if err == nil {
		return ""
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "conn_refused"
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return "conn_reset"
	}
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostErr) || errors.As(err, &recordErr) {
		return "tls"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	s := err.Error()
	switch {
	case strings.Contains(s, "no such host"):
		return "dns"
	case strings.Contains(s, "connection refused"):
		return "conn_refused"
	case strings.Contains(s, "connection reset"):
		return "conn_reset"
	case strings.Contains(s, "certificate") || strings.Contains(s, "tls:"):
		return "tls"
	case strings.Contains(s, "timeout"):
		return "timeout"
	case strings.Contains(s, "EOF"):
		return "eof"
	}
	return "other"
}
