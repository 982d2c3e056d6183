// Package version holds build version information for i18nbatch.
package version

import "fmt"

// Overridden at build time:
// go build -ldflags "-X github.com/ChaoTzuJung/i18n-mcp-translator/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// CacheFormat is the schema version written into cache exports.
const CacheFormat = "1.0"

// Info returns "<version>" or "<version> (<short commit>)".
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return fmt.Sprintf("%s (%s)", Version, Commit[:7])
	}
	return Version
}

// Full returns the multi-line version banner.
func Full() string {
	return fmt.Sprintf("i18nbatch version %s\nCommit: %s\nBuilt: %s\nCache format: %s",
		Version, Commit, BuildDate, CacheFormat)
}
