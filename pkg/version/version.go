// Package version carries the build metadata stamped into release binaries.
package version

// Set at build time via -ldflags "-X github.com/gitinspect/gitinspect/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
