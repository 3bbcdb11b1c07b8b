//go:build !unix

package walk

import "path/filepath"

// resolveIdentity falls back to the fully resolved path on platforms where
// stat does not expose device and inode numbers.
func resolveIdentity(path string) (identity, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return identity{}, err
	}
	return identity{path: resolved}, nil
}
