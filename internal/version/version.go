// Package version provides centralized build version information for
// sdlctl. All packages reference this single source of truth.
package version

// These variables can be overridden at build time using ldflags:
// go build -ldflags "-X github.com/sdlctl/sdlctl/internal/version.Version=1.0.0 -X github.com/sdlctl/sdlctl/internal/version.Commit=abc123"
var (
	// Version is the semantic version of sdlctl.
	Version = "0.1.0"

	// Commit is the git commit hash (set at build time).
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time).
	BuildDate = "unknown"
)

// Info returns a short version string, including a truncated commit hash
// when known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns multi-line version information for `sdlctl version`.
func Full() string {
	return "sdlctl version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
