// Package version holds the replyserver release version.
package version

import "strings"

// Version is overridden at build time with -ldflags "-X .../internal/version.Version=v1.2.3".
var Version = "dev"

// String returns the version with exactly one leading 'v'.
func String() string {
	return "v" + strings.TrimPrefix(Version, "v")
}

// Banner is the one-line identification printed at startup.
func Banner() string {
	return "HTTP Reply Test Server " + String()
}
