package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// shortCommitLength is how many characters of a VCS revision are shown.
const shortCommitLength = 7

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns the version, commit, build time and target platform.
func Full() string {
	commit, builtAt := stamp()

	return fmt.Sprintf("edge-alert %s (commit: %s, built at: %s, %s, %s/%s)",
		Version, commit, builtAt, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// stamp returns the commit and build time, falling back to the VCS settings
// the toolchain embeds when ldflags did not set them.
func stamp() (string, string) {
	commit, builtAt := Commit, BuildTime

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, builtAt
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == "none" && setting.Value != "" {
				commit = setting.Value[:min(len(setting.Value), shortCommitLength)]
			}
		case "vcs.time":
			if builtAt == "unknown" && setting.Value != "" {
				builtAt = setting.Value
			}
		}
	}

	return commit, builtAt
}
