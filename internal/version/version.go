// Package version carries build identity, stamped via -ldflags at
// release time.
package version

var (
	// Version is the semantic release version.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
