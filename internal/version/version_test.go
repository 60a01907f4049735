package version

import (
	"runtime"
	"runtime/debug"
	"testing"
)

func TestGet_Ldflags(t *testing.T) {
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	defer func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	}()

	Version = "1.2.0"
	Commit = "a1b2c3d"
	BuildTime = "2026-10-18T00:00:00Z"

	info := Get()
	if info.Version != "1.2.0" || info.Commit != "a1b2c3d" || info.BuildTime != "2026-10-18T00:00:00Z" {
		t.Errorf("Get() = %+v, want ldflags values", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestFromBuildSettings(t *testing.T) {
	tests := []struct {
		name     string
		start    Info
		settings []debug.BuildSetting
		want     Info
	}{
		{
			name:  "fills unset commit and time",
			start: Info{Commit: unknown, BuildTime: unknown},
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
				{Key: "vcs.modified", Value: "true"},
			},
			want: Info{Commit: "0123456", BuildTime: "2026-10-01T12:00:00Z", Modified: true},
		},
		{
			name:  "keeps ldflags values",
			start: Info{Commit: "abc1234", BuildTime: "2026-10-18T00:00:00Z"},
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
			},
			want: Info{Commit: "abc1234", BuildTime: "2026-10-18T00:00:00Z"},
		},
		{
			name:     "no vcs stamp",
			start:    Info{Commit: unknown, BuildTime: unknown},
			settings: []debug.BuildSetting{{Key: "GOOS", Value: "linux"}},
			want:     Info{Commit: unknown, BuildTime: unknown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start
			fromBuildSettings(&got, tt.settings)
			if got != tt.want {
				t.Errorf("fromBuildSettings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "1.2.0", Commit: "a1b2c3d", BuildTime: "2026-10-18T00:00:00Z", GoVersion: "go1.24.7"}
	if got, want := info.String(), "1.2.0 (a1b2c3d) built 2026-10-18T00:00:00Z go1.24.7"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	info.Modified = true
	if got, want := info.String(), "1.2.0 (a1b2c3d-dirty) built 2026-10-18T00:00:00Z go1.24.7"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
