package upstream

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"vertex-relay/internal/config"
	"vertex-relay/internal/constants"
)

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

// NewTransport builds the outbound transport from the upstream settings.
// There is no overall client timeout: streams may run for minutes.
func NewTransport(cfg config.UpstreamConfig) *http.Transport {
	return &http.Transport{
		Proxy: proxyFunc(cfg.ProxyURL),
		DialContext: (&net.Dialer{
			Timeout:   durationOrDefault(cfg.DialTimeoutSec, constants.DefaultDialTimeout),
			KeepAlive: constants.DefaultKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   durationOrDefault(cfg.TLSHandshakeTimeoutSec, constants.DefaultTLSHandshakeTimeout),
		ResponseHeaderTimeout: durationOrDefault(cfg.ResponseHeaderTimeoutSec, constants.DefaultResponseHeaderTimeout),
		ExpectContinueTimeout: durationOrDefault(cfg.ExpectContinueTimeoutSec, constants.DefaultExpectContinueTimeout),
		MaxIdleConns:          constants.BaseMaxIdleConns,
		MaxIdleConnsPerHost:   constants.BaseMaxIdleConnsPerHost,
		IdleConnTimeout:       constants.BaseIdleConnTimeout,
	}
}

// proxyFunc prefers the configured proxy and falls back to the environment.
func proxyFunc(proxyURL string) func(*http.Request) (*url.URL, error) {
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			return http.ProxyURL(parsed)
		}
	}
	return http.ProxyFromEnvironment
}
