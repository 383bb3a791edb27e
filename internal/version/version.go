// Package version reports build metadata for the CLI.
package version

import "runtime"

// Version is overridden at release time via ldflags.
var Version = "0.1.0-dev"

// Build-time variables set via ldflags.
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App returns the semantic version string.
func App() string {
	return Version
}

// Platform returns the OS/architecture combination.
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}
