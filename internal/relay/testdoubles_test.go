package relay

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
)

// scriptedSource replays chunks, then returns err (io.EOF by default) or,
// when block is set, waits until aborted.
type scriptedSource struct {
	chunks [][]byte
	err    error
	block  bool
	idx    int

	nexts     atomic.Int32
	closed    atomic.Bool
	aborted   atomic.Bool
	abortOnce sync.Once
	abortCh   chan struct{}
}

func newScriptedSource(chunks ...string) *scriptedSource {
	s := &scriptedSource{abortCh: make(chan struct{})}
	for _, c := range chunks {
		s.chunks = append(s.chunks, []byte(c))
	}
	return s
}

func (s *scriptedSource) Next(ctx context.Context) ([]byte, error) {
	s.nexts.Add(1)
	if s.aborted.Load() {
		return nil, ErrSourceAborted
	}
	if s.idx < len(s.chunks) {
		c := s.chunks[s.idx]
		s.idx++
		return c, nil
	}
	if s.block {
		<-s.abortCh
		return nil, ErrSourceAborted
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

func (s *scriptedSource) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *scriptedSource) Abort() error {
	s.abortOnce.Do(func() {
		s.aborted.Store(true)
		close(s.abortCh)
	})
	return nil
}

// recordingSink keeps a copy of every accepted chunk.
type recordingSink struct {
	mu     sync.Mutex
	chunks []string
	buf    bytes.Buffer

	blockPush   bool
	enteredOnce sync.Once
	entered     chan struct{}
	pushErr     error

	closed   atomic.Bool
	aborted  atomic.Bool
	abortErr error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{entered: make(chan struct{})}
}

func (s *recordingSink) Push(ctx context.Context, chunk []byte) error {
	s.enteredOnce.Do(func() { close(s.entered) })
	if s.blockPush {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.pushErr != nil {
		return s.pushErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, string(chunk))
	s.buf.Write(chunk)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *recordingSink) Abort(err error) {
	s.mu.Lock()
	s.abortErr = err
	s.mu.Unlock()
	s.aborted.Store(true)
}

func (s *recordingSink) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}
