// Package version reports which htmlblocks build is running.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/htmlblocks/internal/version.Version=1.0.0"
//
// Builds made with go install fall back to the module and VCS data the Go
// toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

// Info is the version payload of `htmlblocks version -f json|yaml`.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit,omitempty" yaml:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty" yaml:"build_date,omitempty"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// Get merges the ldflags variables with the embedded build info.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromBuildInfo(&info, bi)
	}
	return info
}

func fillFromBuildInfo(info *Info, bi *debug.BuildInfo) {
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = s.Value
			}
		}
	}
}

// UserAgent identifies htmlblocks in outgoing requests.
func UserAgent() string {
	return "htmlblocks/" + Get().Version + " (+https://github.com/jmylchreest/htmlblocks)"
}

// Full is the text printed by `htmlblocks version`.
func Full() string {
	info := Get()
	s := fmt.Sprintf("htmlblocks %s (%s, %s/%s)", info.Version, info.GoVersion, runtime.GOOS, runtime.GOARCH)
	if info.Commit != "" {
		s += "\ncommit " + info.Commit
	}
	if info.BuildDate != "" {
		s += "\nbuilt  " + info.BuildDate
	}
	return s
}
