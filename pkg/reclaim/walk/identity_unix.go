//go:build unix

package walk

import (
	"os"
	"path/filepath"
	"syscall"
)

// resolveIdentity follows symlinks and returns the directory's device and
// inode pair. When the platform stat structure is unavailable the resolved
// path stands in.
func resolveIdentity(path string) (identity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return identity{}, err
	}
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return identity{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, nil
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return identity{}, err
	}
	return identity{path: resolved}, nil
}
