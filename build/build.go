// Package build reports version information about the running binary.
// Release builds set the version with
//
//	-ldflags "-X github.com/amp-labs/usm/build.version=v1.2.3"
//
// and everything else comes from the module's embedded build info.
package build

import (
	"fmt"
	"runtime/debug"
)

// DevVersion is reported when neither ldflags nor module info carry a version.
const DevVersion = "dev"

var version string //nolint:gochecknoglobals

// Info describes the running binary.
type Info struct {
	Version      string            `json:"version"`
	Module       string            `json:"module"`
	GoVersion    string            `json:"go_version"`   //nolint:tagliatelle
	VCSRevision  string            `json:"vcs_revision"` //nolint:tagliatelle
	VCSTime      string            `json:"vcs_time"`     //nolint:tagliatelle
	Modified     bool              `json:"modified"`
	Dependencies map[string]string `json:"dependencies"`
}

// Read collects the binary's build information.
func Read() Info {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{Version: Version()}
	}

	return fromBuildInfo(info, version)
}

// Version returns the binary's version.
func Version() string {
	if version != "" {
		return version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		return fromBuildInfo(info, "").Version
	}

	return DevVersion
}

func fromBuildInfo(bi *debug.BuildInfo, override string) Info {
	info := Info{
		Version:      override,
		Module:       bi.Main.Path,
		GoVersion:    bi.GoVersion,
		Dependencies: make(map[string]string, len(bi.Deps)),
	}

	if info.Version == "" {
		info.Version = bi.Main.Version
	}

	if info.Version == "" || info.Version == "(devel)" {
		info.Version = DevVersion
	}

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.VCSRevision = setting.Value
		case "vcs.time":
			info.VCSTime = setting.Value
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}

	for _, dep := range bi.Deps {
		info.Dependencies[dep.Path] = dep.Version
	}

	return info
}

func (i Info) String() string {
	rev := i.VCSRevision
	if len(rev) > 12 { //nolint:mnd
		rev = rev[:12]
	}

	if rev == "" {
		rev = "unknown"
	}

	if i.Modified {
		rev += "-dirty"
	}

	return fmt.Sprintf("%s (%s, %s)", i.Version, rev, i.GoVersion)
}
