// Package version holds build metadata injected via ldflags.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent is sent by the client on every request.
func UserAgent() string {
	return "riak-go/" + Version
}

// String formats the build metadata for CLI output.
func String() string {
	return Version + " (commit " + Commit + ", built " + Date + ")"
}
