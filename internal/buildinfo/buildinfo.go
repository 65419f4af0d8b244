// Package buildinfo carries the version stamps baked in at build time.
package buildinfo

var (
	// Version is the semantic version, set at build time via -ldflags.
	Version = "dev"

	// Build is the git commit hash or build identifier, set at build time
	// via -ldflags.
	Build = ""
)

// String renders "version (build)", or just the version when no build
// identifier was stamped.
func String() string {
	if Build == "" {
		return Version
	}
	return Version + " (" + Build + ")"
}
