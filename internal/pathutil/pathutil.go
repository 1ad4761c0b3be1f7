package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// StateDirName is the per-user directory holding config, audit files and the
// database.
const StateDirName = ".opguard"

func ExpandHomePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return filepath.Clean(p)
	}
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(p, "~"), "/")))
}

// StateDir returns ~/.opguard, or "" when the home directory is unknown.
func StateDir() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return ""
	}
	return filepath.Join(home, StateDirName)
}

// StatePath joins name under StateDir, or returns "" when there is none.
func StatePath(name string) string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, name)
}
