// Package version holds build-time version information for the irag binary.
// The variables in this package are populated at build time via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/interviewly-rag/internal/version.Version=v0.3.0 \
//	                    -X github.com/54b3r/interviewly-rag/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/interviewly-rag/internal/version.BuildDate=2026-01-01" \
//	    ./cmd/irag
//
// Without ldflags (e.g. `go run`) the values fall back to "dev"/"unknown".
package version

import "fmt"

// Version is the semantic version of the binary (e.g. "v0.3.0").
var Version = "dev"

// Commit is the short git SHA of the commit the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC date the binary was built.
var BuildDate = "unknown"

// String formats the build information as printed by `irag version`.
func String() string {
	return fmt.Sprintf("irag %s (commit: %s, built: %s)", Version, Commit, BuildDate)
}
