package walk

import (
	"context"
	"io/fs"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
)

// TreeSize sums regular file sizes beneath root using a parallel walk.
// Failures are skipped rather than propagated, so the result is a lower
// bound. Symlinks are not followed.
func TreeSize(root string) int64 {
	var total atomic.Int64

	conf := fastwalk.Config{
		Follow: false,
	}

	_ = fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Intentionally skip errors and continue walking
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // Intentionally skip entries we can't stat
		}
		total.Add(info.Size())
		return nil
	})

	return total.Load()
}

// CountFiles counts regular files beneath the given roots for progress
// estimation. Exclusion rules are not applied, so the count is an upper
// bound on what a scan will visit. Counting stops early when ctx is done
// and returns whatever was accumulated.
func CountFiles(ctx context.Context, roots []string) int64 {
	var total atomic.Int64

	conf := fastwalk.Config{
		Follow: false,
	}

	for _, root := range roots {
		err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, walkErr error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if walkErr != nil {
				return nil //nolint:nilerr // Intentionally skip errors and continue walking
			}
			if d.Type().IsRegular() {
				total.Add(1)
			}
			return nil
		})
		if err != nil {
			break
		}
	}

	return total.Load()
}
