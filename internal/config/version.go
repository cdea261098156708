package config

// Version is the auditrail binary version.
// Set at build time via: -ldflags "-X github.com/persistorai/auditrail/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
