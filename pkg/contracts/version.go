// Package contracts holds the versioning information shared by the
// service, the CLI and API clients.
package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the current version of the application
	Version = "1.0.0"

	// DataFormatVersion versions the CSV export layout.
	DataFormatVersion = "v1"

	// APIVersion versions the HTTP and websocket contracts.
	APIVersion = "v1"
)

var (
	// BuildTime is set during build using ldflags
	BuildTime = "unknown"

	// GitCommit is set during build using ldflags
	GitCommit = "unknown"
)

// VersionInfo contains detailed version information
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	DataFormat   string `json:"data_format"`
	APIVersion   string `json:"api_version"`
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		DataFormat:   DataFormatVersion,
		APIVersion:   APIVersion,
	}
}

// String renders the one-line form printed by the version command.
func (v VersionInfo) String() string {
	return fmt.Sprintf("datacleaner v%s (api %s, data format %s)\ncommit %s, built %s, %s %s/%s",
		v.Version, v.APIVersion, v.DataFormat, v.GitCommit, v.BuildTime, v.GoVersion, v.OS, v.Architecture)
}
