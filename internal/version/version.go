// Package version reports which build of the repeater is running.
// Values are stamped at link time:
//
//	go build -ldflags "-X github.com/PatrickBoulton12345/livestreamrepeater/internal/version.Version=v1.0.0"
package version

import "runtime"

// Stamped via -ldflags. The defaults cover a plain go build.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info describes the running binary for the version command and logs.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the stamped build description plus runtime details.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns just the version, for log lines.
func String() string {
	return Version
}
