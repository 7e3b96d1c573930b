// Package buildinfo carries the version stamped in with
//
//	-ldflags "-X github.com/m3rciful/servicebot/core/buildinfo.Version=v1.4.0"
//
// Commit and Date fall back to the VCS data the Go toolchain embeds.
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && Commit == "local" && s.Value != "":
			Commit = short(s.Value)
		case s.Key == "vcs.time" && Date == "":
			Date = s.Value
		}
	}
}

func short(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
