package version

import (
	"strings"
	"testing"
)

func TestInfo_Short(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"dev", Info{Version: "dev"}, "dev"},
		{"commit truncated", Info{Version: "1.0.0", Commit: "abc1234def"}, "1.0.0-abc1234"},
		{"dirty", Info{Version: "1.0.0", Commit: "abc1234", Dirty: true}, "1.0.0-abc1234-dirty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Short(); got != tt.want {
				t.Errorf("Short() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInfo_Release(t *testing.T) {
	tests := []struct {
		info Info
		want bool
	}{
		{Info{Version: "dev"}, false},
		{Info{Version: "1.0.0"}, true},
		{Info{Version: "1.0.0", Dirty: true}, false},
		{Info{Version: "1.0.0-dirty"}, false},
	}
	for _, tt := range tests {
		if got := tt.info.Release(); got != tt.want {
			t.Errorf("%+v Release() = %v, want %v", tt.info, got, tt.want)
		}
	}
}

func TestGet_LinkTimeValuesWin(t *testing.T) {
	orig := [3]string{Version, Commit, BuildTime}
	defer func() { Version, Commit, BuildTime = orig[0], orig[1], orig[2] }()

	Version, Commit, BuildTime = "2.1.0", "feedbeef", "2026-01-15T10:30:00Z"
	info := Get()
	if info.Version != "2.1.0" || info.Commit != "feedbeef" || info.BuildTime != "2026-01-15T10:30:00Z" {
		t.Errorf("Get() = %+v", info)
	}
	if s := info.String(); !strings.Contains(s, "2.1.0-feedbee") || !strings.Contains(s, "built 2026-01-15") {
		t.Errorf("String() = %q", s)
	}
}
