package version

// Version is overridden at build time via -ldflags "-X vertex-relay/internal/version.Version=...".
var Version = "dev"
