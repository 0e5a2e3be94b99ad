package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfo(t *testing.T) {
	t.Parallel()

	info := GetVersionInfo()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.NotEmpty(t, info.Commit)
	assert.NotEmpty(t, info.BuildDate)
}

func TestVersionInfo_String(t *testing.T) {
	t.Parallel()

	info := VersionInfo{
		Version:   "v0.3.0",
		Commit:    "abc123",
		BuildDate: "2025-01-15T10:30:00Z",
		GoVersion: "go1.25.2",
		Platform:  "linux/amd64",
	}

	assert.Equal(t, "v0.3.0 (commit abc123, built 2025-01-15T10:30:00Z, go1.25.2 linux/amd64)", info.String())
}
