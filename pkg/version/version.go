package version

// Version is the release version. Overridden at build time with
// -ldflags "-X tourguide/pkg/version.Version=...".
var Version = "v0.3.0"
