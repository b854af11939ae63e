package relay

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"vertex-relay/internal/constants"
)

// ErrSourceAborted is returned by Next after Abort released the source.
var ErrSourceAborted = errors.New("source aborted")

// Source yields upstream chunks one at a time. A chunk is only valid until
// the next call to Next. Abort releases the underlying connection and may be
// called concurrently with Next to unblock it.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
	Close() error
	Abort() error
}

// BodySource reads an upstream response body with a reused buffer.
type BodySource struct {
	body io.ReadCloser
	buf  []byte
	// pending is a read error that arrived together with data; only Next touches it.
	pending error

	once     sync.Once
	closeErr error
	aborted  atomic.Bool
}

// NewBodySource wraps body. chunkSize <= 0 selects the default.
func NewBodySource(body io.ReadCloser, chunkSize int) *BodySource {
	if chunkSize <= 0 {
		chunkSize = constants.DefaultChunkSize
	}
	return &BodySource{body: body, buf: make([]byte, chunkSize)}
}

// Next performs a single read. It returns io.EOF at end of stream and never
// returns data together with an error.
func (s *BodySource) Next(ctx context.Context) ([]byte, error) {
	if s.pending != nil {
		err := s.pending
		s.pending = nil
		return nil, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := s.body.Read(s.buf)
		if n > 0 {
			if err != nil {
				s.pending = err
			}
			return s.buf[:n], nil
		}
		if err != nil {
			if s.aborted.Load() {
				return nil, ErrSourceAborted
			}
			return nil, err
		}
	}
}

// Close releases the body after a clean end of stream.
func (s *BodySource) Close() error {
	s.once.Do(func() { s.closeErr = s.body.Close() })
	return s.closeErr
}

// Abort closes the body early, which unblocks a pending Read.
func (s *BodySource) Abort() error {
	s.aborted.Store(true)
	return s.Close()
}

// Aborted reports whether Abort was called.
func (s *BodySource) Aborted() bool { return s.aborted.Load() }
