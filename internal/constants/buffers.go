package constants

const (
	// DefaultChunkSize is the read buffer used per upstream pull (32KB).
	DefaultChunkSize = 32 * 1024
	// MaxChunkSize caps the configurable chunk size (1MB).
	MaxChunkSize = 1024 * 1024
	// DefaultMaxBodyBytes caps inbound request bodies (1MB).
	DefaultMaxBodyBytes = 1024 * 1024
	// DefaultMaxErrorBodyBytes caps how much of a non-success upstream body is captured (1MB).
	DefaultMaxErrorBodyBytes = 1024 * 1024
	// DefaultEventQueueSize bounds the outbound event queue.
	DefaultEventQueueSize = 1024
)
