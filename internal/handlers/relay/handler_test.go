package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vertex-relay/internal/config"
	"vertex-relay/internal/credential"
	apperrors "vertex-relay/internal/errors"
	"vertex-relay/internal/events"
	mw "vertex-relay/internal/middleware"
	"vertex-relay/internal/upstream"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type countingProvider struct {
	inner credential.Provider
	calls atomic.Int32
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Acquire(ctx context.Context) (*credential.Credential, error) {
	p.calls.Add(1)
	return p.inner.Acquire(ctx)
}

type fakeDispatcher struct {
	resp  *upstream.Response
	err   error
	calls atomic.Int32
	mu    sync.Mutex
	last  *upstream.Call
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, call *upstream.Call) (*upstream.Response, error) {
	d.calls.Add(1)
	d.mu.Lock()
	d.last = call
	d.mu.Unlock()
	return d.resp, d.err
}

// chunkReader returns one scripted chunk per Read, then err or io.EOF.
type chunkReader struct {
	chunks []string
	err    error
	closed atomic.Bool
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func (r *chunkReader) Close() error {
	r.closed.Store(true)
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	records []events.OutcomeRecord
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any, _ map[string]string) {
	if topic != events.TopicRelayOutcome {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, payload.(events.OutcomeRecord))
}

func (p *recordingPublisher) all() []events.OutcomeRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OutcomeRecord(nil), p.records...)
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			Project:  "proj",
			Location: "us-central1",
			Model:    "gemini-test",
			BaseURL:  baseURL,
		},
		Relay: config.RelayConfig{ChunkSize: 4096, MaxBodyBytes: 1 << 16},
	}
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw.Recovery(), mw.RequestID())
	router.POST("/api/generate", h.Generate)
	return router
}

func postPrompt(router http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateStreamsChunksInOrder(t *testing.T) {
	body := &chunkReader{chunks: []string{`{"text":"Hel"}`, `{"text":"lo"}`, `{"text":"!"}`}}
	disp := &fakeDispatcher{resp: &upstream.Response{StatusOK: true, StatusCode: 200, Body: body}}
	pub := &recordingPublisher{}
	h := New(config.Static{Config: testConfig("")}, credential.NewStatic("tok"), disp, pub,
		WithIDGenerator(func() string { return "relay-1" }))

	w := postPrompt(newRouter(h), `{"prompt":"Say hello"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"text":"Hel"}{"text":"lo"}{"text":"!"}`, w.Body.String())
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	require.Equal(t, "relay-1", w.Header().Get("X-Relay-ID"))
	require.True(t, body.closed.Load())

	require.Equal(t, "Say hello", gjson.GetBytes(disp.last.Payload(), "contents.0.parts.0.text").String())
	require.Equal(t, "Bearer tok", disp.last.Headers().Get("Authorization"))

	recs := pub.all()
	require.Len(t, recs, 1)
	require.Equal(t, "completed", recs[0].State)
	require.Equal(t, 3, recs[0].Chunks)
	require.EqualValues(t, len(w.Body.String()), recs[0].Bytes)
	require.Equal(t, "relay-1", recs[0].RelayID)
	require.Equal(t, "gemini-test", recs[0].Model)
	require.NotEmpty(t, recs[0].RequestID)
}

func TestGenerateRejectsInvalidPromptWithoutNetwork(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty prompt", `{"prompt":""}`, `{"error":"Prompt is required"}`},
		{"missing prompt", `{}`, `{"error":"Prompt is required"}`},
		{"blank prompt", `{"prompt":"   "}`, `{"error":"Prompt is required"}`},
		{"non-string", `{"prompt":42}`, `{"error":"Prompt must be a string"}`},
		{"invalid json", `not json`, `{"error":"Invalid JSON body"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prov := &countingProvider{inner: credential.NewStatic("tok")}
			disp := &fakeDispatcher{}
			pub := &recordingPublisher{}
			h := New(config.Static{Config: testConfig("")}, prov, disp, pub)

			w := postPrompt(newRouter(h), tc.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			require.JSONEq(t, tc.want, w.Body.String())
			require.Zero(t, prov.calls.Load())
			require.Zero(t, disp.calls.Load())
			recs := pub.all()
			require.Len(t, recs, 1)
			require.Equal(t, "rejected", recs[0].State)
			require.Equal(t, "validation", recs[0].Kind)
			require.Equal(t, http.StatusBadRequest, recs[0].Status)
		})
	}
}

func TestGenerateRejectsOversizedBody(t *testing.T) {
	cfg := testConfig("")
	cfg.Relay.MaxBodyBytes = 16
	disp := &fakeDispatcher{}
	h := New(config.Static{Config: cfg}, credential.NewStatic("tok"), disp, nil)

	w := postPrompt(newRouter(h), `{"prompt":"`+strings.Repeat("x", 64)+`"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"Request body too large"}`, w.Body.String())
	require.Zero(t, disp.calls.Load())
}

func TestGenerateCredentialFailureSkipsDispatch(t *testing.T) {
	prov := &countingProvider{inner: credential.NewStatic("")}
	disp := &fakeDispatcher{}
	h := New(config.Static{Config: testConfig("")}, prov, disp, nil)

	w := postPrompt(newRouter(h), `{"prompt":"hi"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"failed to acquire credential"}`, w.Body.String())
	require.EqualValues(t, 1, prov.calls.Load())
	require.Zero(t, disp.calls.Load())
}

func TestGenerateMissingProjectIsConfigurationError(t *testing.T) {
	cfg := testConfig("")
	cfg.Upstream.Project = ""
	prov := &countingProvider{inner: credential.NewStatic("tok")}
	disp := &fakeDispatcher{}
	h := New(config.Static{Config: cfg}, prov, disp, nil)

	w := postPrompt(newRouter(h), `{"prompt":"hi"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"Missing upstream project"}`, w.Body.String())
	require.Zero(t, prov.calls.Load())
	require.Zero(t, disp.calls.Load())
}

func TestGenerateUpstreamStatusBecomes502(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:streamGenerateContent"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"permission denied"}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	h := New(config.Static{Config: cfg}, credential.NewStatic("tok"), upstream.NewDispatcher(cfg.Upstream), nil)

	w := postPrompt(newRouter(h), `{"prompt":"hi"}`)

	require.Equal(t, http.StatusBadGateway, w.Code)
	require.JSONEq(t, `{"error":"Upstream error","details":"{\"error\":\"permission denied\"}"}`, w.Body.String())
	require.EqualValues(t, 1, hits.Load())
}

func TestGenerateTruncatedUpstreamErrorIsFlagged(t *testing.T) {
	disp := &fakeDispatcher{resp: &upstream.Response{
		StatusCode:     http.StatusInternalServerError,
		ErrorBody:      []byte("eeee"),
		ErrorTruncated: true,
	}}
	pub := &recordingPublisher{}
	h := New(config.Static{Config: testConfig("")}, credential.NewStatic("tok"), disp, pub)

	w := postPrompt(newRouter(h), `{"prompt":"hi"}`)

	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Equal(t, "eeee", gjson.Get(w.Body.String(), "details").String())
	records := pub.all()
	require.Len(t, records, 1)
	require.Equal(t, "rejected", records[0].State)
	require.Equal(t, "status_500_truncated", records[0].Reason)
}

func TestGenerateDispatchErrors(t *testing.T) {
	unreachable := apperrors.New(apperrors.KindTransport, "Upstream unreachable")
	unreachable.Reason = "conn_refused"

	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"transport", unreachable, http.StatusBadGateway, `{"error":"Upstream unreachable"}`},
		{"untyped", errors.New("boom"), http.StatusInternalServerError, `{"error":"unhandled error","details":"boom"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			disp := &fakeDispatcher{err: tc.err}
			h := New(config.Static{Config: testConfig("")}, credential.NewStatic("tok"), disp, nil)

			w := postPrompt(newRouter(h), `{"prompt":"hi"}`)

			require.Equal(t, tc.status, w.Code)
			require.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestGenerateForwardsBytesVerbatimAcrossRequests(t *testing.T) {
	payload := []byte("[{\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"caf\xc3\xa9 \\u00e9\"}]}}]}\r\n,\x00\xff]")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		for i := 0; i < len(payload); i += 7 {
			end := i + 7
			if end > len(payload) {
				end = len(payload)
			}
			_, _ = w.Write(payload[i:end])
			w.(http.Flusher).Flush()
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Relay.ChunkSize = 5
	h := New(config.Static{Config: cfg}, credential.NewStatic("tok"), upstream.NewDispatcher(cfg.Upstream), nil)
	relaySrv := httptest.NewServer(newRouter(h))
	defer relaySrv.Close()

	fetch := func() []byte {
		resp, err := http.Post(relaySrv.URL+"/api/generate", "application/json", strings.NewReader(`{"prompt":"hi"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return got
	}

	first := fetch()
	second := fetch()
	require.True(t, bytes.Equal(payload, first))
	require.True(t, bytes.Equal(first, second))
}

func TestGenerateStreamFailureTruncatesResponse(t *testing.T) {
	body := &chunkReader{chunks: []string{`{"text":"partial"}`}, err: errors.New("stream reset")}
	disp := &fakeDispatcher{resp: &upstream.Response{StatusOK: true, StatusCode: 200, Body: body}}
	pub := &recordingPublisher{}
	h := New(config.Static{Config: testConfig("")}, credential.NewStatic("tok"), disp, pub)
	relaySrv := httptest.NewServer(newRouter(h))
	defer relaySrv.Close()

	resp, err := http.Post(relaySrv.URL+"/api/generate", "application/json", strings.NewReader(`{"prompt":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := io.ReadAll(resp.Body)
	require.Error(t, err)
	require.Equal(t, `{"text":"partial"}`, string(got))

	recs := pub.all()
	require.Len(t, recs, 1)
	require.Equal(t, "failed", recs[0].State)
	require.Equal(t, "upstream_stream", recs[0].Kind)
	require.Equal(t, 1, recs[0].Chunks)
}

func TestGenerateClientDisconnectReleasesUpstream(t *testing.T) {
	released := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"first"}`))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
			close(released)
		case <-time.After(10 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	pub := &recordingPublisher{}
	h := New(config.Static{Config: cfg}, credential.NewStatic("tok"), upstream.NewDispatcher(cfg.Upstream), pub)
	relaySrv := httptest.NewServer(newRouter(h))
	defer relaySrv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, relaySrv.URL+"/api/generate", strings.NewReader(`{"prompt":"hi"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	first := `{"text":"first"}`
	buf := make([]byte, len(first))
	_, err = io.ReadFull(resp.Body, buf)
	require.NoError(t, err)
	require.Equal(t, first, string(buf))
	cancel()

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("upstream connection was not released after client disconnect")
	}

	require.Eventually(t, func() bool {
		recs := pub.all()
		return len(recs) == 1 && recs[0].State == "cancelled"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestGenerateRelayTimeoutBeforeHeaders(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server only notices a client hang-up once the body is consumed.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.Relay.TimeoutSec = 1
	h := New(config.Static{Config: cfg}, credential.NewStatic("tok"), upstream.NewDispatcher(cfg.Upstream), nil)

	start := time.Now()
	w := postPrompt(newRouter(h), `{"prompt":"hi"}`)
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	require.Less(t, time.Since(start), 2*time.Second)
}
