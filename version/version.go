// Package version exposes build provenance stamped in via ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Overridden at build time:
//
//	go build -ldflags "-X github.com/heraldai/herald/version.Version=v0.3.0 ..."
var (
	Version    = "dev"     // semantic version when tagged
	CommitHash = "dev"     // git commit the binary was built from
	BuildTime  = "unknown" // build timestamp
)

// Info is the full build record, JSON-shaped for the version command
// and the status endpoint.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get assembles the build record, adding the runtime facts that need
// no stamping.
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders the one-line form shown by `herald version`.
func (i Info) String() string {
	return fmt.Sprintf("herald %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildTime)
}

// Short is the abbreviated commit hash.
func (i Info) Short() string {
	if len(i.CommitHash) > 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}

// UserAgent identifies Herald on outbound requests (webhook deliveries,
// agent runner calls) so the receiving side can tell deployments apart.
func UserAgent() string {
	return fmt.Sprintf("herald/%s (%s)", Version, Get().Short())
}
