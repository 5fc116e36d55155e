// Package buildconfig reports which classifier build is running. Release
// builds set version and commit with -ldflags "-X"; other builds fall back
// to the VCS stamp the Go toolchain embeds.
package buildconfig

import (
	"runtime"
	"runtime/debug"
	"sync"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	resolveOnce sync.Once
	resolved    Info

	readBuildInfo = debug.ReadBuildInfo
)

// Info describes the running binary.
type Info struct {
	Version   string
	Commit    string
	Modified  bool
	GoVersion string
}

// Get returns build information, resolved once per process.
func Get() Info {
	resolveOnce.Do(func() { resolved = resolve() })
	return resolved
}

func resolve() Info {
	info := Info{Version: version, Commit: commit, GoVersion: runtime.Version()}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = shortRevision(s.Value)
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

func Version() string { return Get().Version }

func Commit() string { return Get().Commit }

// VersionInfo is the build section of the health endpoint.
func VersionInfo() map[string]string {
	info := Get()
	out := map[string]string{
		"version":    info.Version,
		"commit":     info.Commit,
		"go_version": info.GoVersion,
	}
	if info.Modified {
		out["modified"] = "true"
	}
	return out
}
