//go:build !darwin && !windows

package metadata

import (
	"os"
	"path/filepath"
	"strings"
)

// hidden follows the dotfile convention.
func hidden(path string, _ os.FileInfo) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// system attributes do not exist on these platforms.
func system(_ string, _ os.FileInfo) bool {
	return false
}
