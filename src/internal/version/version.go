// FILE: kibanalog/src/internal/version/version.go
package version

import (
	"fmt"
	"runtime"
)

var (
	// Set at build time via -ldflags "-X kibanalog/src/internal/version.Version=..."
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String returns the version line printed by -version and the startup log
func String() string {
	return fmt.Sprintf("kibanalog %s (commit: %s, built: %s, %s %s/%s)",
		Version, GitCommit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version tag
func Short() string {
	return Version
}
