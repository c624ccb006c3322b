// Package version reports the build of the running xdpfn binary.
// It is shown by --version of both commands and by the Version.Version management method.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Version records build version information.
type Version struct {
	Version string    `json:"version"`
	Commit  string    `json:"commit"`
	Date    time.Time `json:"date"`
	Dirty   bool      `json:"dirty"`
}

// String returns the version, with the abbreviated commit when it is not already part of it.
func (v Version) String() string {
	if len(v.Commit) < 12 || v.Version != "development" {
		return v.Version
	}
	return v.Version + "+" + v.Commit[:12]
}

// V describes the running binary.
var V = FromBuildInfo(debug.ReadBuildInfo())

// FromBuildInfo extracts version information embedded by the Go toolchain.
// Without module or VCS metadata, the result is a dirty "development" build dated now.
func FromBuildInfo(bi *debug.BuildInfo, ok bool) (v Version) {
	v = Version{Version: "development", Commit: "unknown", Date: time.Now(), Dirty: true}
	if !ok || bi == nil {
		return v
	}

	bs := map[string]string{}
	for _, kv := range bi.Settings {
		bs[kv.Key] = kv.Value
	}
	if dt, e := time.Parse(time.RFC3339, bs["vcs.time"]); e == nil && bs["vcs"] == "git" && len(bs["vcs.revision"]) == 40 {
		v.Commit, v.Date, v.Dirty = bs["vcs.revision"], dt, bs["vcs.modified"] == "true"
	}

	switch {
	case bi.Main.Version != "" && bi.Main.Version != "(devel)":
		v.Version = bi.Main.Version
	case v.Commit != "unknown":
		// Go pseudo-version layout
		v.Version = fmt.Sprintf("v0.0.0-%s-%s", v.Date.UTC().Format("20060102150405"), v.Commit[:12])
		if v.Dirty {
			v.Version += "-dirty"
		}
	}
	return v
}
