// FILE: src/internal/version/version.go
package version

import (
	"fmt"
	"runtime"
)

var (
	// Set at build time via -ldflags "-X kinlog/src/internal/version.Version=..."
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String is the long form shown by `kinlog version`
func String() string {
	return fmt.Sprintf("kinlog %s (commit: %s, built: %s, %s/%s)",
		Version, GitCommit, BuildTime, runtime.GOOS, runtime.GOARCH)
}

func Short() string {
	return Version
}

// UserAgent identifies producers to the stream endpoint
func UserAgent() string {
	return "kinlog/" + Version
}
