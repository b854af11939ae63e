package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"vertex-relay/internal/config"
	"vertex-relay/internal/constants"
	apperrors "vertex-relay/internal/errors"
	mw "vertex-relay/internal/middleware"
	"vertex-relay/internal/monitoring/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Response is the upstream reply. Exactly one of Body and ErrorBody is set,
// selected by StatusOK. A non-nil Body is owned by the caller, which must
// drain and close it or abort it. ErrorTruncated reports that ErrorBody was
// cut at the configured limit.
type Response struct {
	StatusOK       bool
	StatusCode     int
	Header         http.Header
	Body           io.ReadCloser
	ErrorBody      []byte
	ErrorTruncated bool
}

// Doer is the subset of *http.Client the dispatcher needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher sends one streaming POST per call. It never retries.
type Dispatcher struct {
	client       Doer
	maxErrorBody int64
	now          func() time.Time
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDoer replaces the HTTP client; used with httptest servers and fakes.
func WithDoer(d Doer) DispatcherOption {
	return func(disp *Dispatcher) {
		if d != nil {
			disp.client = d
		}
	}
}

// NewDispatcher builds a dispatcher with its own transport.
func NewDispatcher(cfg config.UpstreamConfig, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		client:       &http.Client{Transport: NewTransport(cfg)},
		maxErrorBody: cfg.MaxErrorBodyBytes,
		now:          time.Now,
	}
	if d.maxErrorBody <= 0 {
		d.maxErrorBody = constants.DefaultMaxErrorBodyBytes
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch issues call. Transport failures and success-without-body return a
// *apperrors.RelayError; any received status returns a Response.
func (d *Dispatcher) Dispatch(ctx context.Context, call *Call) (*Response, error) {
	endpoint := call.Endpoint()
	ctx, span := tracing.StartSpan(ctx, "upstream", "Vertex.StreamGenerateContent",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", http.MethodPost),
			attribute.String("http.url", endpoint.Redacted()),
			attribute.String("upstream.model", call.Model()),
		))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(call.Payload()))
	if err != nil {
		return nil, d.fail(span, call, 0, 0, apperrors.Wrap(apperrors.KindInternal, "failed to build upstream request", err))
	}
	req.Header = call.Headers()

	start := d.now()
	resp, err := d.client.Do(req)
	elapsed := d.now().Sub(start)
	if err != nil {
		return nil, d.fail(span, call, 0, elapsed, apperrors.MapNetworkError(ctx, err))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, truncated := d.readErrorBody(resp, call.Model())
		mw.RecordUpstream(call.Model(), elapsed, resp.StatusCode, false)
		span.SetStatus(codes.Error, fmt.Sprintf("http_status=%d", resp.StatusCode))
		return &Response{
			StatusOK:       false,
			StatusCode:     resp.StatusCode,
			Header:         resp.Header,
			ErrorBody:      body,
			ErrorTruncated: truncated,
		}, nil
	}

	if resp.Body == nil || resp.Body == http.NoBody || resp.ContentLength == 0 {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		re := apperrors.New(apperrors.KindTransport, "Upstream returned success without a body")
		re.Status = http.StatusInternalServerError
		re.Reason = "empty_body"
		return nil, d.fail(span, call, resp.StatusCode, elapsed, re)
	}

	mw.RecordUpstream(call.Model(), elapsed, resp.StatusCode, false)
	span.SetStatus(codes.Ok, "")
	return &Response{StatusOK: true, StatusCode: resp.StatusCode, Header: resp.Header, Body: resp.Body}, nil
}

// readErrorBody reads at most maxErrorBody bytes and releases the connection.
// The bool is true when the upstream sent more than the limit or the read
// failed partway.
func (d *Dispatcher) readErrorBody(resp *http.Response, model string) ([]byte, bool) {
	if resp.Body == nil {
		return nil, false
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxErrorBody+1))
	truncated := err != nil || int64(len(body)) > d.maxErrorBody
	if int64(len(body)) > d.maxErrorBody {
		body = body[:d.maxErrorBody]
	}
	if truncated {
		entry := log.WithFields(log.Fields{
			"status": resp.StatusCode,
			"limit":  d.maxErrorBody,
			"model":  model,
		})
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Warn("upstream error body truncated")
	}
	return body, truncated
}

func (d *Dispatcher) fail(span trace.Span, call *Call, status int, elapsed time.Duration, re *apperrors.RelayError) error {
	span.RecordError(re)
	span.SetStatus(codes.Error, re.Message)
	mw.RecordUpstream(call.Model(), elapsed, status, status == 0)
	mw.RecordUpstreamError(string(re.Kind), re.Reason)
	return re
}
