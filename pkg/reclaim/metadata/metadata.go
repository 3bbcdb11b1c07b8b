// Package metadata turns traversal refs into immutable file metadata.
package metadata

import (
	"os"
	"time"

	"github.com/djherbis/times"

	"github.com/reclaimtool/reclaim/pkg/reclaim/progress"
	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// Collector stats items and feeds the session counters. Collection never
// follows symlinks, so metadata always describes the enumerated entry
// itself.
type Collector struct {
	tracker *progress.Tracker
}

// NewCollector returns a Collector bound to the session tracker. A nil
// tracker disables counting.
func NewCollector(tracker *progress.Tracker) *Collector {
	return &Collector{tracker: tracker}
}

// Collect lstats the referenced item. On success the file or directory
// counter and the byte total are incremented exactly once. Failures are
// counted as errors and returned as an ItemError carrying the taxonomy
// kind, leaving the item excluded from all further stages.
func (c *Collector) Collect(ref types.FileRef) (types.FileMetadata, error) {
	info, err := os.Lstat(ref.Path)
	if err != nil {
		if c.tracker != nil {
			c.tracker.AddError()
		}
		return types.FileMetadata{}, types.NewItemError(ref.Path, err)
	}

	meta := types.FileMetadata{
		Path:       ref.Path,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		CreateTime: createTime(info),
		IsDir:      info.IsDir(),
		Hidden:     hidden(ref.Path, info),
		System:     system(ref.Path, info),
		ReadOnly:   info.Mode().Perm()&0o200 == 0,
	}

	if c.tracker != nil {
		if meta.IsDir {
			c.tracker.AddDir()
		} else {
			c.tracker.AddFile(meta.Size)
		}
	}

	return meta, nil
}

// createTime returns the birth time where the platform records one and
// falls back to the modification time elsewhere, notably on Linux
// filesystems without statx birth time support.
func createTime(info os.FileInfo) time.Time {
	ts := times.Get(info)
	if ts.HasBirthTime() {
		return ts.BirthTime()
	}
	return info.ModTime()
}
