package constants

import "time"

// Upstream HTTP transport settings.
const (
	BaseMaxIdleConns        = 256
	BaseMaxIdleConnsPerHost = 64
	BaseIdleConnTimeout     = 90 * time.Second

	DefaultKeepAlive = 30 * time.Second
)

// Upstream HTTP timeouts. None of these bound the streamed body; a slow
// stream is governed only by the optional relay timeout.
const (
	DefaultDialTimeout           = 10 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 60 * time.Second
	DefaultExpectContinueTimeout = 2 * time.Second
)
