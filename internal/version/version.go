// Package version reports how the gochip8 binary was built
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// Name is the program banner
const Name = "gochip8 - Go CHIP-8 Emulator"

// Set with -ldflags "-X gochip8/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info is the build metadata shown by -version and logged at startup
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Dirty     bool   `json:"dirty"`
}

// Current combines the ldflags values with the VCS stamp of the module
func Current() Info {
	return fromBuild(debug.ReadBuildInfo())
}

func fromBuild(bi *debug.BuildInfo, ok bool) Info {
	info := Info{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if !ok || bi == nil {
		return info
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

// Short is the release tag, or dev-<commit> for untagged builds
func (i Info) Short() string {
	if i.Version != "dev" || i.Commit == "unknown" {
		return i.Version
	}
	short := "dev-" + shortCommit(i.Commit)
	if i.Dirty {
		short += "+dirty"
	}
	return short
}

// String is the one-line form used in the startup banner
func (i Info) String() string {
	return fmt.Sprintf("gochip8 %s (%s, %s)", i.Short(), i.GoVersion, i.Platform)
}

// Fields returns the metadata as log fields
func (i Info) Fields() logrus.Fields {
	return logrus.Fields{
		"version": i.Short(),
		"commit":  shortCommit(i.Commit),
		"go":      i.GoVersion,
	}
}

// WriteTo prints the -version report
func (i Info) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "%s\nVersion:     %s\nCommit:      %s\nBuild Time:  %s\nGo Version:  %s\nPlatform:    %s\n",
		Name, i.Short(), i.Commit, i.BuildTime, i.GoVersion, i.Platform)
	return int64(n), err
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
