// Package version reports build metadata stamped at link time
package version

import "runtime/debug"

// BuildInfo holds version information about a binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go,omitempty"`
}

// Set via -ldflags "-X 'agentpulse/internal/core/version.version=v0.1.0'
// -X 'agentpulse/internal/core/version.commit=abcd' -X 'agentpulse/internal/core/version.date=2025-03-10'"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns build info for the named service
func Info(service string) BuildInfo {
	bi := BuildInfo{Service: service, Version: version, Commit: commit, Date: date}
	if b, ok := debug.ReadBuildInfo(); ok && b != nil {
		bi.Go = b.GoVersion
		if commit == "none" {
			for _, s := range b.Settings {
				if s.Key == "vcs.revision" {
					bi.Commit = s.Value
				}
			}
		}
	}
	return bi
}
