package relay

import (
	"context"
	"errors"
	"io"
	"time"

	apperrors "vertex-relay/internal/errors"
)

// Relay moves bytes from a Source to a Sink strictly one chunk at a time.
// A Relay has no per-request state and may be shared.
type Relay struct {
	now func() time.Time
}

// Option customizes a Relay.
type Option func(*Relay)

// WithClock overrides the time source used for Outcome.Duration.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

// New returns a Relay.
func New(opts ...Option) *Relay {
	r := &Relay{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run pulls from src and pushes to sink until one side ends. The next chunk
// is never requested before the previous push returned. On return both src
// and sink have been closed or aborted.
//
// When ctx ends, src is aborted immediately so a blocked Next returns. A
// context cause of apperrors.ErrRelayTimeout yields Failed(timeout); any
// other cancellation yields Cancelled.
func (r *Relay) Run(ctx context.Context, src Source, sink Sink) Outcome {
	start := r.now()
	sm := &stateMachine{}
	stop := context.AfterFunc(ctx, func() { _ = src.Abort() })
	defer stop()

	var (
		chunks int
		total  int64
	)
	for !sm.current().Terminal() {
		if ctx.Err() != nil {
			r.endByContext(ctx, sm, src, sink)
			break
		}
		sm.startStreaming()

		chunk, err := src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				sm.finish(StateCompleted, "", "")
				_ = sink.Close()
				_ = src.Close()
			case ctx.Err() != nil:
				r.endByContext(ctx, sm, src, sink)
			default:
				sm.finish(StateFailed, apperrors.KindUpstreamStream, err.Error())
				sink.Abort(err)
				_ = src.Abort()
			}
			break
		}
		if len(chunk) == 0 {
			continue
		}

		if err := sink.Push(ctx, chunk); err != nil {
			if ctx.Err() != nil {
				r.endByContext(ctx, sm, src, sink)
			} else {
				sm.finish(StateCancelled, apperrors.KindCancelled, err.Error())
				_ = src.Abort()
			}
			break
		}
		chunks++
		total += int64(len(chunk))
	}

	state, kind, detail, streamed := sm.snapshot()
	return Outcome{
		State:    state,
		Kind:     kind,
		Detail:   detail,
		Streamed: streamed,
		Chunks:   chunks,
		Bytes:    total,
		Duration: r.now().Sub(start),
	}
}

func (r *Relay) endByContext(ctx context.Context, sm *stateMachine, src Source, sink Sink) {
	cause := context.Cause(ctx)
	_ = src.Abort()
	if errors.Is(cause, apperrors.ErrRelayTimeout) {
		sm.finish(StateFailed, apperrors.KindTimeout, cause.Error())
		sink.Abort(cause)
		return
	}
	detail := "context cancelled"
	if cause != nil {
		detail = cause.Error()
	}
	sm.finish(StateCancelled, apperrors.KindCancelled, detail)
}
