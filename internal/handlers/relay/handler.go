package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"vertex-relay/internal/config"
	"vertex-relay/internal/constants"
	"vertex-relay/internal/credential"
	apperrors "vertex-relay/internal/errors"
	"vertex-relay/internal/events"
	hcommon "vertex-relay/internal/handlers/common"
	"vertex-relay/internal/logging"
	mw "vertex-relay/internal/middleware"
	stream "vertex-relay/internal/relay"
	"vertex-relay/internal/upstream"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Dispatcher sends one upstream call; *upstream.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, call *upstream.Call) (*upstream.Response, error)
}

var _ Dispatcher = (*upstream.Dispatcher)(nil)

// Handler serves the streaming generate endpoint.
type Handler struct {
	cfg    config.Source
	creds  credential.Provider
	disp   Dispatcher
	pub    events.Publisher
	relay  *stream.Relay
	newID  func() string
	acqMax time.Duration
}

// Option customizes a Handler.
type Option func(*Handler)

// WithRelay replaces the stream relay (tests inject a clock).
func WithRelay(r *stream.Relay) Option {
	return func(h *Handler) {
		if r != nil {
			h.relay = r
		}
	}
}

// WithIDGenerator overrides relay id generation.
func WithIDGenerator(fn func() string) Option {
	return func(h *Handler) {
		if fn != nil {
			h.newID = fn
		}
	}
}

// New constructs a Handler. pub may be nil.
func New(cfg config.Source, creds credential.Provider, disp Dispatcher, pub events.Publisher, opts ...Option) *Handler {
	h := &Handler{
		cfg:    cfg,
		creds:  creds,
		disp:   disp,
		pub:    pub,
		relay:  stream.New(),
		newID:  uuid.NewString,
		acqMax: constants.CredentialAcquireTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// attempt accumulates what one request did, for the log line and outcome event.
type attempt struct {
	relayID   string
	model     string
	promptLen int
	status    int
	err       error
	outcome   *stream.Outcome
	start     time.Time
	done      bool
}

// Generate handles POST {base}/api/generate.
func (h *Handler) Generate(c *gin.Context) {
	cfg := h.cfg.Current()
	a := &attempt{relayID: h.newID(), start: time.Now()}
	c.Header("X-Relay-ID", a.relayID)
	defer h.finish(c, a)

	req, err := h.readRequest(c, cfg.Relay.MaxBodyBytes)
	if err != nil {
		h.fail(c, a, err)
		return
	}
	a.promptLen = len(req.Prompt)

	target := upstream.TargetFromConfig(cfg.Upstream)
	a.model = target.Model
	if err := target.Validate(); err != nil {
		h.fail(c, a, err)
		return
	}

	ctx := c.Request.Context()
	cred, err := h.acquire(ctx)
	if err != nil {
		h.fail(c, a, err)
		return
	}

	call, err := upstream.BuildCall(target, req, cred)
	if err != nil {
		h.fail(c, a, err)
		return
	}

	if cfg.Relay.TimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, time.Duration(cfg.Relay.TimeoutSec)*time.Second, apperrors.ErrRelayTimeout)
		defer cancel()
	}

	resp, err := h.disp.Dispatch(ctx, call)
	if err != nil {
		h.fail(c, a, err)
		return
	}
	if !resp.StatusOK {
		re := apperrors.UpstreamStatus(resp.StatusCode, resp.ErrorBody)
		if resp.ErrorTruncated {
			re.Reason += "_truncated"
		}
		h.fail(c, a, re)
		return
	}

	h.stream(ctx, c, a, cfg, resp.Body)
}

func (h *Handler) readRequest(c *gin.Context, maxBytes int64) (*stream.Request, error) {
	if maxBytes <= 0 {
		maxBytes = constants.DefaultMaxBodyBytes
	}
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.Validation("Request body too large")
		}
		if ctxErr := c.Request.Context().Err(); ctxErr != nil {
			return nil, apperrors.Wrap(apperrors.KindCancelled, "client disconnected", ctxErr)
		}
		return nil, apperrors.Wrap(apperrors.KindValidation, "Invalid JSON body", err)
	}
	return stream.Validate(raw)
}

func (h *Handler) acquire(ctx context.Context) (*credential.Credential, error) {
	acqCtx, cancel := context.WithTimeout(ctx, h.acqMax)
	defer cancel()
	cred, err := h.creds.Acquire(acqCtx)
	if err != nil && ctx.Err() != nil {
		return nil, apperrors.Wrap(apperrors.KindCancelled, "client disconnected", context.Cause(ctx))
	}
	return cred, err
}

// stream commits 200 and relays body. A failure after the commit can only be
// signalled by breaking the connection.
func (h *Handler) stream(ctx context.Context, c *gin.Context, a *attempt, cfg *config.Config, body io.ReadCloser) {
	release := mw.TrackActiveStream()
	defer release()

	c.Header("Content-Type", "application/json")
	c.Header("Cache-Control", "no-store")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
	a.status = http.StatusOK

	src := stream.NewBodySource(body, cfg.Relay.ChunkSize)
	sink := stream.NewHTTPSink(c.Writer)
	out := h.relay.Run(ctx, src, sink)
	a.outcome = &out
	c.Set(mw.OutcomeStateKey, out.State.String())
	mw.RecordRelayOutcome(out.State.String(), string(out.Kind), out.Chunks, out.Bytes, out.Duration)

	if out.State == stream.StateFailed {
		h.finish(c, a)
		panic(http.ErrAbortHandler)
	}
}

func (h *Handler) fail(c *gin.Context, a *attempt, err error) {
	a.err = err
	status, _ := apperrors.Translate(err)
	a.status = status
	c.Set(mw.OutcomeStateKey, "rejected")
	hcommon.AbortWithRelayError(c, err)
}

// finish logs and publishes exactly once per request.
func (h *Handler) finish(c *gin.Context, a *attempt) {
	if a.done {
		return
	}
	a.done = true
	rec := events.OutcomeRecord{
		RequestID:  logging.RequestID(c),
		RelayID:    a.relayID,
		Route:      c.FullPath(),
		Model:      a.model,
		Status:     a.status,
		DurationMS: logging.DurationMS(time.Since(a.start)),
		FinishedAt: time.Now().UTC(),
	}
	fields := log.Fields{
		"relay_id":   a.relayID,
		"model":      a.model,
		"prompt_len": a.promptLen,
		"status":     a.status,
	}
	switch {
	case a.outcome != nil:
		rec.State = a.outcome.State.String()
		rec.Kind = string(a.outcome.Kind)
		rec.Chunks = a.outcome.Chunks
		rec.Bytes = a.outcome.Bytes
		rec.DurationMS = logging.DurationMS(a.outcome.Duration)
		fields["state"] = rec.State
		fields["chunks"] = rec.Chunks
		fields["bytes"] = rec.Bytes
		fields["stream_ms"] = rec.DurationMS
		if rec.Kind != "" {
			fields["error_kind"] = rec.Kind
			fields["detail"] = a.outcome.Detail
		}
	case a.err != nil:
		rec.State = "rejected"
		rec.Kind = string(apperrors.KindOf(a.err))
		var re *apperrors.RelayError
		if errors.As(a.err, &re) && re.Reason != "" {
			rec.Reason = re.Reason
			fields["error_reason"] = re.Reason
		}
		fields["state"] = rec.State
		fields["error_kind"] = logging.ErrorKind(a.status, a.err)
		fields["error"] = a.err.Error()
	default:
		return
	}

	if h.pub != nil {
		h.pub.Publish(context.WithoutCancel(c.Request.Context()), events.TopicRelayOutcome, rec, nil)
	}

	entry := logging.WithReq(c, fields)
	switch {
	case rec.State == stream.StateCompleted.String():
		entry.Info("relay finished")
	case rec.Kind == string(apperrors.KindCancelled):
		entry.Info("relay cancelled")
	case a.status >= 500 || rec.State == stream.StateFailed.String():
		entry.Warn("relay failed")
	default:
		entry.Info("relay rejected")
	}
}
