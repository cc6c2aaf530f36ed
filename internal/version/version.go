package version

import (
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// Version will be set during build time via ldflags, fallback to Git
var Version = "dev"

// BuildTime will be set during build time via ldflags
var BuildTime = "unknown"

// GitCommit will be set during build time via ldflags
var GitCommit = "unknown"

var (
	resolveOnce sync.Once
	resolved    string
)

// GetVersionInfo returns the parser version. It is also part of every cache
// key, so it is resolved once per process.
func GetVersionInfo() string {
	resolveOnce.Do(func() {
		resolved = Version
		if Version == "dev" {
			if gitVersion := getGitVersion(); gitVersion != "" {
				resolved = gitVersion
			}
		}
	})
	return resolved
}

// GetFullVersionInfo returns detailed version information
func GetFullVersionInfo() string {
	version := GetVersionInfo()
	if BuildTime != "unknown" && GitCommit != "unknown" {
		return version + " (built " + BuildTime + ", commit " + GitCommit + ")"
	}
	if GitCommit != "unknown" {
		return version + " (commit " + GitCommit + ")"
	}
	return version
}

// BuildInfo is the version block reported by the health endpoint.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// Info returns the running build's version details.
func Info() BuildInfo {
	return BuildInfo{
		Version:   GetVersionInfo(),
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}
}

// getGitVersion attempts to get version from Git tags
func getGitVersion() string {
	cmd := exec.Command("git", "describe", "--tags", "--abbrev=0")
	if output, err := cmd.Output(); err == nil {
		version := strings.TrimSpace(string(output))
		if version != "" {
			return strings.TrimPrefix(version, "v")
		}
	}

	cmd = exec.Command("git", "rev-parse", "--short", "HEAD")
	if output, err := cmd.Output(); err == nil {
		commit := strings.TrimSpace(string(output))
		if commit != "" {
			return "dev-" + commit
		}
	}

	return "dev-unknown"
}
