//go:build darwin

package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// hidden combines the dotfile convention with the Finder hidden flag.
func hidden(path string, info os.FileInfo) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return stat.Flags&unix.UF_HIDDEN != 0
	}
	return false
}

// system reports files carrying the restricted flag used by SIP.
func system(_ string, info os.FileInfo) bool {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return stat.Flags&unix.SF_RESTRICTED != 0
	}
	return false
}
