package version

import "fmt"

// Set at build time with -ldflags "-X github.com/livp123/logtap/internal/version.Version=v1.2.3".
// 构建时通过 -ldflags 设置。
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("logtap %s (commit %s, built %s)", Version, Commit, BuildDate)
}
