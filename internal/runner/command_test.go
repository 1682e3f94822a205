// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"slices"
	"testing"
)

func TestFormatCommand(t *testing.T) {
	tests := []struct {
		argv []string
		want string
	}{
		{[]string{"docker", "images", "-q", "dx-local-install-test-dx-runtime-ubuntu-24-04"}, "docker images -q dx-local-install-test-dx-runtime-ubuntu-24-04"},
		{[]string{"bash", "-lc", "echo hi"}, "bash -lc 'echo hi'"},
		{[]string{"ls", "/deepx/workspace"}, "ls /deepx/workspace"},
	}
	for _, tt := range tests {
		if got := FormatCommand(tt.argv); got != tt.want {
			t.Errorf("FormatCommand(%q) = %q, want %q", tt.argv, got, tt.want)
		}
	}
}

func TestJoinStreams(t *testing.T) {
	tests := []struct {
		name           string
		stdout, stderr string
		want           string
	}{
		{"both empty", "", "", ""},
		{"stdout only", "ok\n", "", "ok\n"},
		{"stderr only", "", "bad\n", "bad\n"},
		{"both", "ok\n", "bad\n", "ok\n" + StreamSeparator + "\nbad\n"},
		{"stdout without newline", "ok", "bad", "ok\n" + StreamSeparator + "\nbad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinStreams(tt.stdout, tt.stderr); got != tt.want {
				t.Errorf("JoinStreams() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMergeEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/root", "DX_USERNAME=old", "NOEQUALS"}
	got := MergeEnv(base, map[string]string{"DX_USERNAME": "new", "COMPONENT": "dx-runtime"})

	want := []string{"PATH=/usr/bin", "HOME=/root", "NOEQUALS", "COMPONENT=dx-runtime", "DX_USERNAME=new"}
	if !slices.Equal(got, want) {
		t.Errorf("MergeEnv() = %q, want %q", got, want)
	}
	if v, ok := LookupEnv(got, "DX_USERNAME"); !ok || v != "new" {
		t.Errorf("LookupEnv(DX_USERNAME) = %q, %v", v, ok)
	}
	if len(base) != 4 || base[2] != "DX_USERNAME=old" {
		t.Error("MergeEnv modified its input")
	}
}

func TestMergeEnvNoOverrides(t *testing.T) {
	base := []string{"A=1", "B=2"}
	if got := MergeEnv(base, nil); !slices.Equal(got, base) {
		t.Errorf("MergeEnv(nil) = %q, want %q", got, base)
	}
}

func TestLookupEnvLastWins(t *testing.T) {
	env := []string{"K=first", "OTHER=x", "K=second"}
	if v, ok := LookupEnv(env, "K"); !ok || v != "second" {
		t.Errorf("LookupEnv(K) = %q, %v, want second", v, ok)
	}
	if _, ok := LookupEnv(env, "MISSING"); ok {
		t.Error("LookupEnv(MISSING) reported found")
	}
}

func TestModeFor(t *testing.T) {
	if ModeFor(true) != OutputLive || ModeFor(false) != OutputCaptured {
		t.Error("ModeFor does not map verbose to live")
	}
	if OutputLive.String() != "live" || OutputMode(7).String() != "OutputMode(7)" {
		t.Errorf("unexpected mode names %q %q", OutputLive, OutputMode(7))
	}
}
