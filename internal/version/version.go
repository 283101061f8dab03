// Package version holds build information set through -ldflags.
package version

var (
	// Version is the release version.
	Version = "dev"
	// Commit is the source revision.
	Commit = "unknown"
)

// String returns the version and commit.
func String() string {
	return Version + " (" + Commit + ")"
}
