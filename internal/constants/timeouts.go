package constants

import "time"

const (
	// ServerShutdownTimeout bounds graceful HTTP server shutdown.
	ServerShutdownTimeout = 30 * time.Second
	// ServerReadHeaderTimeout bounds how long a client may take to send request headers.
	ServerReadHeaderTimeout = 10 * time.Second
	// CredentialAcquireTimeout bounds a single token fetch from the identity provider.
	CredentialAcquireTimeout = 30 * time.Second
	// ConfigReloadDebounce coalesces bursts of file events into one reload.
	ConfigReloadDebounce = 100 * time.Millisecond
	// ConfigPollInterval is used when fsnotify is unavailable.
	ConfigPollInterval = 5 * time.Second
	// EventPublishTimeout bounds one outbound event publish.
	EventPublishTimeout = 2 * time.Second
)
