package buildinfo

// Set at build time, for example:
//
//	go build -ldflags "-X 'github.com/m3rciful/tripbot/core/buildinfo.Version=v1.0.0' \
//	  -X 'github.com/m3rciful/tripbot/core/buildinfo.Commit=$(git rev-parse --short HEAD)' \
//	  -X 'github.com/m3rciful/tripbot/core/buildinfo.Date=$(date -u +%FT%TZ)'" ./cmd/tripbot
var (
	// Version is the release tag of the build.
	Version = "dev"
	// Commit is the source revision of the build.
	Commit = "local"
	// Date is the RFC3339 build timestamp.
	Date = ""
)

// Info is the build metadata as reported by the health endpoint.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date,omitempty"`
}

// Current returns the build metadata of the running binary.
func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}
