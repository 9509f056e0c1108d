package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vcsBuild(settings ...debug.BuildSetting) *debug.BuildInfo {
	return &debug.BuildInfo{Settings: settings}
}

func TestFromBuild_WithoutBuildInfo(t *testing.T) {
	info := fromBuild(nil, false)

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestFromBuild_ShouldUseVCSStamp(t *testing.T) {
	info := fromBuild(vcsBuild(
		debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef"},
		debug.BuildSetting{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		debug.BuildSetting{Key: "vcs.modified", Value: "true"},
	), true)

	assert.Equal(t, "0123456789abcdef", info.Commit)
	assert.Equal(t, "2026-10-01T12:00:00Z", info.BuildTime)
	assert.True(t, info.Dirty)
	assert.Equal(t, "dev-0123456+dirty", info.Short())
}

func TestFromBuild_LdflagsWin(t *testing.T) {
	old := GitCommit
	GitCommit = "feedbee"
	defer func() { GitCommit = old }()

	info := fromBuild(vcsBuild(debug.BuildSetting{Key: "vcs.revision", Value: "0123456789"}), true)

	assert.Equal(t, "feedbee", info.Commit)
}

func TestInfo_Short(t *testing.T) {
	tests := map[string]struct {
		info Info
		want string
	}{
		"release":        {Info{Version: "1.2.0", Commit: "0123456789"}, "1.2.0"},
		"dev no vcs":     {Info{Version: "dev", Commit: "unknown"}, "dev"},
		"dev with vcs":   {Info{Version: "dev", Commit: "0123456789"}, "dev-0123456"},
		"short revision": {Info{Version: "dev", Commit: "abc"}, "dev-abc"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.Short())
		})
	}
}

func TestInfo_StringAndFields(t *testing.T) {
	info := Info{Version: "1.2.0", Commit: "0123456789", GoVersion: "go1.26.0", Platform: "linux/amd64"}

	assert.Equal(t, "gochip8 1.2.0 (go1.26.0, linux/amd64)", info.String())
	fields := info.Fields()
	assert.Equal(t, "1.2.0", fields["version"])
	assert.Equal(t, "0123456", fields["commit"])
}

func TestInfo_WriteTo(t *testing.T) {
	var sb strings.Builder
	info := Info{Version: "1.2.0", Commit: "0123456789", BuildTime: "now", GoVersion: "go1.26.0", Platform: "linux/amd64"}

	n, err := info.WriteTo(&sb)

	require.NoError(t, err)
	assert.Equal(t, int64(sb.Len()), n)
	assert.True(t, strings.HasPrefix(sb.String(), Name+"\n"))
	assert.Contains(t, sb.String(), "Version:     1.2.0\n")
	assert.Contains(t, sb.String(), "Platform:    linux/amd64\n")
}
