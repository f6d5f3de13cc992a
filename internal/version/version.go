// Package version exposes build metadata stamped at link time, e.g.
//
//	go build -ldflags "-X github.com/nexusfeed/nexusfeed/internal/version.Version=1.2.0 \
//	                   -X github.com/nexusfeed/nexusfeed/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/nexusfeed/nexusfeed/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

var (
	Version   = "dev"     // semantic version
	Commit    = "unknown" // short git commit hash
	BuildTime = "unknown" // UTC build timestamp, ISO 8601
)

// String renders "version (commit) built time" for logs and /healthz.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}
