package credential

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"vertex-relay/internal/config"
	apperrors "vertex-relay/internal/errors"
	"vertex-relay/internal/monitoring"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Option customizes provider construction.
type Option func(*options)

type options struct {
	now      func() time.Time
	findADC  func(ctx context.Context, scopes ...string) (*google.Credentials, error)
	readFile func(string) ([]byte, error)
	baseCtx  context.Context
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithADCFinder replaces the Application Default Credentials lookup.
func WithADCFinder(fn func(ctx context.Context, scopes ...string) (*google.Credentials, error)) Option {
	return func(o *options) {
		if fn != nil {
			o.findADC = fn
		}
	}
}

// WithHTTPClient sets the client used for token endpoint calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.baseCtx = context.WithValue(context.Background(), oauth2.HTTPClient, client)
		}
	}
}

// NewProvider builds the provider selected by cfg.Mode.
func NewProvider(ctx context.Context, cfg config.CredentialConfig, opts ...Option) (Provider, error) {
	o := options{
		now:      time.Now,
		findADC:  google.FindDefaultCredentials,
		readFile: os.ReadFile,
		baseCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{config.CloudPlatformScope}
	}

	var (
		ts  oauth2.TokenSource
		err error
	)
	switch strings.TrimSpace(cfg.Mode) {
	case config.ModeADC, "":
		ts, err = adcSource(ctx, o, scopes)
		if err != nil {
			// ADC may appear later (metadata server, mounted file); report per request.
			log.WithError(err).Warn("application default credentials unavailable")
			return &tokenProvider{name: config.ModeADC, err: fmt.Errorf("%w: %v", ErrNoIdentity, err), now: o.now}, nil
		}
		return newTokenProvider(config.ModeADC, ts, cfg.DisableTokenReuse, o.now), nil
	case config.ModeServiceAccount:
		ts, err = serviceAccountSource(o, cfg.CredentialsFile, scopes)
		if err != nil {
			return nil, err
		}
		return newTokenProvider(config.ModeServiceAccount, ts, cfg.DisableTokenReuse, o.now), nil
	case config.ModeRefreshToken:
		ts, err = refreshTokenSource(o, cfg, scopes)
		if err != nil {
			return nil, err
		}
		return newTokenProvider(config.ModeRefreshToken, ts, cfg.DisableTokenReuse, o.now), nil
	case config.ModeStatic:
		return NewStatic(cfg.Token), nil
	default:
		return nil, fmt.Errorf("unknown credential mode %q", cfg.Mode)
	}
}

func adcSource(ctx context.Context, o options, scopes []string) (oauth2.TokenSource, error) {
	creds, err := o.findADC(ctx, scopes...)
	if err != nil {
		return nil, err
	}
	return creds.TokenSource, nil
}

func serviceAccountSource(o options, path string, scopes []string) (oauth2.TokenSource, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("service_account mode requires credentials_file: %w", ErrNoIdentity)
	}
	data, err := o.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(o.baseCtx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	return creds.TokenSource, nil
}

func refreshTokenSource(o options, cfg config.CredentialConfig, scopes []string) (oauth2.TokenSource, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("refresh_token mode requires client_id, client_secret and refresh_token: %w", ErrNoIdentity)
	}
	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
	return &refreshSource{ctx: o.baseCtx, conf: oc, refreshToken: cfg.RefreshToken}, nil
}

// refreshSource exchanges the refresh token on every call; caching is left
// to the ReuseTokenSource wrapper so disable_token_reuse is honored.
type refreshSource struct {
	ctx  context.Context
	conf *oauth2.Config

	mu           sync.Mutex
	refreshToken string
}

func (s *refreshSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	rt := s.refreshToken
	s.mu.Unlock()

	tok, err := s.conf.TokenSource(s.ctx, &oauth2.Token{RefreshToken: rt}).Token()
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken != "" && tok.RefreshToken != rt {
		s.mu.Lock()
		s.refreshToken = tok.RefreshToken
		s.mu.Unlock()
	}
	return tok, nil
}

// tokenProvider adapts an oauth2.TokenSource to Provider.
type tokenProvider struct {
	name string
	ts   oauth2.TokenSource
	err  error
	now  func() time.Time
}

func newTokenProvider(name string, ts oauth2.TokenSource, disableReuse bool, now func() time.Time) *tokenProvider {
	if !disableReuse {
		ts = oauth2.ReuseTokenSource(nil, ts)
	}
	return &tokenProvider{name: name, ts: ts, now: now}
}

// NewTokenSourceProvider wraps an arbitrary token source.
func NewTokenSourceProvider(name string, ts oauth2.TokenSource) Provider {
	return &tokenProvider{name: name, ts: ts, now: time.Now}
}

func (p *tokenProvider) Name() string { return p.name }

// Acquire fetches a token. oauth2.TokenSource is not context aware, so the
// fetch runs in its own goroutine and ctx bounds only the wait.
func (p *tokenProvider) Acquire(ctx context.Context) (*Credential, error) {
	start := p.now()
	cred, err := p.acquire(ctx)
	monitoring.CredentialAcquireDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = reasonOf(err)
	}
	monitoring.CredentialAcquireTotal.WithLabelValues(p.name, result).Inc()
	return cred, err
}

func (p *tokenProvider) acquire(ctx context.Context) (*Credential, error) {
	if p.err != nil {
		return nil, credentialError("no_identity", p.err)
	}
	if err := ctx.Err(); err != nil {
		return nil, credentialError("cancelled", err)
	}

	type result struct {
		tok *oauth2.Token
		err error
	}
	ch := make(chan result, 1)
	go func() {
		tok, err := p.ts.Token()
		ch <- result{tok, err}
	}()

	select {
	case <-ctx.Done():
		return nil, credentialError("cancelled", context.Cause(ctx))
	case r := <-ch:
		if r.err != nil {
			return nil, credentialError("token_fetch", r.err)
		}
		if r.tok == nil || strings.TrimSpace(r.tok.AccessToken) == "" {
			return nil, credentialError("empty_token", errors.New("provider returned an empty token"))
		}
		return fromToken(p.name, r.tok, p.now()), nil
	}
}

// StaticProvider returns the same configured token every time.
type StaticProvider struct {
	token string
	now   func() time.Time
}

// NewStatic returns a provider for a fixed token.
func NewStatic(token string) *StaticProvider {
	return &StaticProvider{token: strings.TrimSpace(token), now: time.Now}
}

func (p *StaticProvider) Name() string { return config.ModeStatic }

func (p *StaticProvider) Acquire(ctx context.Context) (*Credential, error) {
	result := "ok"
	defer func() { monitoring.CredentialAcquireTotal.WithLabelValues(config.ModeStatic, result).Inc() }()
	if err := ctx.Err(); err != nil {
		result = "cancelled"
		return nil, credentialError(result, err)
	}
	if p.token == "" {
		result = "no_identity"
		return nil, credentialError(result, ErrNoIdentity)
	}
	return &Credential{Token: p.token, TokenType: "Bearer", AcquiredAt: p.now(), Source: config.ModeStatic}, nil
}

func credentialError(reason string, err error) *apperrors.RelayError {
	re := apperrors.Wrap(apperrors.KindCredential, "failed to acquire credential", err)
	re.Reason = reason
	return re
}

func reasonOf(err error) string {
	var re *apperrors.RelayError
	if errors.As(err, &re) && re.Reason != "" {
		return re.Reason
	}
	return "error"
}
