// Package version holds build-time metadata populated via -ldflags at
// release time. GitRelease defaults to "dev" and the commit vars to
// "unknown", so a plain `go build` still produces a usable binary.
package version

import "runtime"

var (
	// GitRelease is the tagged release this binary was built from.
	GitRelease = "dev"
	// GitCommit is the short commit hash this binary was built from.
	GitCommit = "unknown"
	// GitCommitDate is the commit timestamp this binary was built from.
	GitCommitDate = "unknown"
)

// GoInfo reports the Go toolchain version used to build the binary.
var GoInfo = runtime.Version()
