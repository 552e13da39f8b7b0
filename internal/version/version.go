// Package version exposes the build version string.
package version

// Version is overridden at build time via -ldflags.
var Version = "dev"

// GetInfo returns the version string for display.
func GetInfo() string {
	return Version
}
