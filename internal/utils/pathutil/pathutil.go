package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading "~" or "~/" against the current user's
// home directory. Paths naming another user ("~bob/...") and paths with
// no tilde prefix are returned unchanged.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return homeDir, nil
	}

	return filepath.Join(homeDir, path[2:]), nil
}
