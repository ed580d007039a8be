package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// ModulePath is the import path reported in build info for this module.
const ModulePath = "github.com/kbukum/spacekit"

var (
	// Set at build time using -ldflags.
	Version   = "dev"
	GitCommit = ""
)

var readBuildInfo = debug.ReadBuildInfo

// Info describes the running spacekit build.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	IsRelease bool   `json:"is_release"`
	IsDirty   bool   `json:"is_dirty"`
}

// Get returns version information. A version set through -ldflags wins;
// otherwise the module version is read from the binary's build info, which
// is where it lives when spacekit is consumed as a dependency.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: strings.TrimPrefix(runtime.Version(), "go"),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	if bi, ok := readBuildInfo(); ok {
		if info.Version == "dev" {
			if v := moduleVersion(bi); v != "" {
				info.Version = v
			}
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = s.Value
				}
			case "vcs.modified":
				info.IsDirty = s.Value == "true"
			}
		}
	}
	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}

	// Pre-releases, pseudo-versions and dirty builds all carry a suffix.
	info.IsRelease = info.Version != "dev" && !strings.Contains(info.Version, "-")
	return info
}

func moduleVersion(bi *debug.BuildInfo) string {
	if bi.Main.Path == ModulePath && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return strings.TrimPrefix(bi.Main.Version, "v")
	}
	for _, dep := range bi.Deps {
		if dep.Path != ModulePath {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return strings.TrimPrefix(dep.Replace.Version, "v")
		}
		return strings.TrimPrefix(dep.Version, "v")
	}
	return ""
}

// SDKVersion returns the spacekit version string used in the user agent.
func SDKVersion() string {
	return Get().Version
}

// Short returns the version with the commit appended when known.
func (i Info) Short() string {
	if i.GitCommit == "" {
		return i.Version
	}
	if i.IsDirty {
		return fmt.Sprintf("%s-%s-dirty", i.Version, i.GitCommit)
	}
	return fmt.Sprintf("%s-%s", i.Version, i.GitCommit)
}
