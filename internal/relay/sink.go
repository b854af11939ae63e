package relay

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// Sink accepts chunks for the client. Push blocks until the chunk has been
// handed to the transport, which is how a slow client throttles upstream reads.
type Sink interface {
	Push(ctx context.Context, chunk []byte) error
	Close() error
	Abort(err error)
}

// ErrSinkClosed is returned by Push after Close or Abort.
var ErrSinkClosed = errors.New("sink closed")

// HTTPSink writes and flushes each chunk to an http.ResponseWriter.
// Abort only records the failure: the owning handler must end the
// connection abnormally (panic(http.ErrAbortHandler)) once Run returns.
type HTTPSink struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu       sync.Mutex
	closed   bool
	abortErr error
}

// NewHTTPSink wraps w. The status line and headers must already be written.
func NewHTTPSink(w http.ResponseWriter) *HTTPSink {
	return &HTTPSink{w: w, rc: http.NewResponseController(w)}
}

func (s *HTTPSink) Push(ctx context.Context, chunk []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	if _, err := s.w.Write(chunk); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func (s *HTTPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func (s *HTTPSink) Abort(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if err == nil {
		err = ErrSinkClosed
	}
	s.abortErr = err
}

// Aborted returns the error passed to Abort, or nil.
func (s *HTTPSink) Aborted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abortErr
}
