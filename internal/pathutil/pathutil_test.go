package pathutil

import (
	"path/filepath"
	"testing"
)

func TestExpandHomePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  ", ""},
		{"~", home},
		{"~/audit.jsonl", filepath.Join(home, "audit.jsonl")},
		{"/var/log/../tmp/x", "/var/tmp/x"},
		{"rel/./path", "rel/path"},
		{"~other/x", "~other/x"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := ExpandHomePath(tc.in); got != tc.want {
				t.Fatalf("ExpandHomePath(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestStatePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	want := filepath.Join(home, StateDirName, "config.yaml")
	if got := StatePath("config.yaml"); got != want {
		t.Fatalf("StatePath = %q, want %q", got, want)
	}
}
