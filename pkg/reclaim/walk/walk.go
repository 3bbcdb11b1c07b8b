// Package walk traverses directory trees and feeds the scan pipeline.
//
// The walker uses an explicit stack instead of recursion so deep trees
// cannot exhaust the goroutine stack and cancellation can be polled at
// every directory boundary. Listing failures are surfaced through hooks
// and never abort the walk.
package walk

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gobwas/glob"

	"github.com/reclaimtool/reclaim/pkg/reclaim/progress"
	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// Options control a traversal session.
type Options struct {
	// ExcludePatterns are glob patterns matched against slash-separated
	// paths and against entry base names. Matching entries are pruned.
	ExcludePatterns []string

	// ExcludePrefixes are literal path prefixes to prune.
	ExcludePrefixes []string

	// MaxDepth limits how many levels below each root are entered.
	// Zero means unlimited. Roots sit at depth zero.
	MaxDepth int

	// FollowSymlinks descends symlinked directories. Cycles are detected
	// through a per-session visited set keyed by device and inode.
	FollowSymlinks bool
}

// Hooks receive traversal output. Emit is required, the rest are optional.
type Hooks struct {
	// Emit is called once for every traversed directory and every
	// regular file that survives exclusion. It may block; backpressure
	// from a full pipeline queue is the intended flow control.
	Emit func(types.FileRef)

	// Error receives listing and stat failures. Each failure also
	// increments the tracker error counter.
	Error func(types.ItemError)

	// Cycle is called once per detected symlink cycle with the path
	// whose resolved identity was already visited.
	Cycle func(path string)

	// DirUnit is consulted for each directory not already inside a
	// suppressed subtree. Returning true marks the directory and
	// everything beneath it so downstream stages skip per-file
	// classification there.
	DirUnit func(path string, depth int) bool
}

// identity names a directory independent of the route used to reach it.
// On platforms without stat device and inode numbers the resolved path
// stands in.
type identity struct {
	dev  uint64
	ino  uint64
	path string
}

// Walker enumerates files and directories beneath a set of roots. A single
// Walker carries the visited set and emission order for a whole session, so
// Walk may be called concurrently for different roots.
type Walker struct {
	opts    Options
	globs   []glob.Glob
	tracker *progress.Tracker
	hooks   Hooks

	order atomic.Uint64

	mu      sync.Mutex
	visited map[identity]struct{}
}

// New compiles exclusion patterns and returns a Walker. Invalid patterns
// fail fast with ErrConfigInvalid.
func New(opts Options, tracker *progress.Tracker, hooks Hooks) (*Walker, error) {
	if hooks.Emit == nil {
		return nil, fmt.Errorf("%w: walk requires an emit hook", types.ErrConfigInvalid)
	}

	globs := make([]glob.Glob, 0, len(opts.ExcludePatterns))
	for _, pattern := range opts.ExcludePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: exclude pattern %q: %v", types.ErrConfigInvalid, pattern, err)
		}
		globs = append(globs, g)
	}

	return &Walker{
		opts:    opts,
		globs:   globs,
		tracker: tracker,
		hooks:   hooks,
		visited: make(map[identity]struct{}),
	}, nil
}

type frame struct {
	path     string
	depth    int
	suppress bool
}

// Walk enumerates root depth-first. Exclusions apply to entries discovered
// during the walk, never to the root itself. Listing errors are reported
// and skipped. Walk returns ErrCancelled once cancellation is observed and
// nil otherwise.
func (w *Walker) Walk(ctx context.Context, root string) error {
	info, err := os.Lstat(root)
	if err != nil {
		w.reportError(root, err)
		return nil
	}
	if !info.IsDir() {
		if info.Mode().IsRegular() {
			w.emit(types.FileRef{Path: root})
		}
		return nil
	}

	stack := []frame{{path: root}}
	for len(stack) > 0 {
		if w.cancelled(ctx) {
			return types.ErrCancelled
		}

		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if w.opts.FollowSymlinks {
			id, err := resolveIdentity(fr.path)
			if err != nil {
				w.reportError(fr.path, err)
				continue
			}
			if !w.markVisited(id) {
				if w.hooks.Cycle != nil {
					w.hooks.Cycle(fr.path)
				}
				continue
			}
		}

		if w.tracker != nil {
			w.tracker.SetCurrentPath(fr.path)
		}

		suppress := fr.suppress
		if !suppress && w.hooks.DirUnit != nil {
			suppress = w.hooks.DirUnit(fr.path, fr.depth)
		}

		w.emit(types.FileRef{Path: fr.path, Depth: fr.depth, IsDir: true, SkipClassify: suppress})

		entries, err := os.ReadDir(fr.path)
		if err != nil {
			w.reportError(fr.path, err)
			continue
		}

		for _, entry := range entries {
			if w.cancelled(ctx) {
				return types.ErrCancelled
			}

			child := filepath.Join(fr.path, entry.Name())
			isDir := entry.IsDir()
			if w.excluded(child, entry.Name(), isDir) {
				continue
			}

			switch {
			case isDir:
				if w.descends(fr.depth) {
					stack = append(stack, frame{path: child, depth: fr.depth + 1, suppress: suppress})
				}
			case entry.Type()&fs.ModeSymlink != 0:
				if !w.opts.FollowSymlinks {
					continue
				}
				target, err := os.Stat(child)
				if err != nil {
					w.reportError(child, err)
					continue
				}
				// Symlinked files are skipped so content reachable
				// through links is hashed at most once.
				if target.IsDir() && w.descends(fr.depth) {
					stack = append(stack, frame{path: child, depth: fr.depth + 1, suppress: suppress})
				}
			default:
				if entry.Type().IsRegular() {
					w.emit(types.FileRef{Path: child, Depth: fr.depth + 1, SkipClassify: suppress})
				}
			}
		}
	}

	return nil
}

// descends reports whether children of a directory at depth may be entered.
func (w *Walker) descends(depth int) bool {
	return w.opts.MaxDepth <= 0 || depth+1 <= w.opts.MaxDepth
}

// excluded tests an entry against prefixes and compiled patterns. Directory
// paths are additionally tested with a trailing separator so patterns like
// "**/.git/**" prune the directory itself, not only its contents.
func (w *Walker) excluded(path, name string, isDir bool) bool {
	for _, prefix := range w.opts.ExcludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	if len(w.globs) == 0 {
		return false
	}

	slashed := filepath.ToSlash(path)
	for _, g := range w.globs {
		if g.Match(slashed) || g.Match(name) {
			return true
		}
		if isDir && g.Match(slashed+"/") {
			return true
		}
	}
	return false
}

func (w *Walker) markVisited(id identity) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, seen := w.visited[id]; seen {
		return false
	}
	w.visited[id] = struct{}{}
	return true
}

func (w *Walker) emit(ref types.FileRef) {
	ref.Order = w.order.Add(1)
	w.hooks.Emit(ref)
}

func (w *Walker) reportError(path string, err error) {
	if w.tracker != nil {
		w.tracker.AddError()
	}
	if w.hooks.Error != nil {
		w.hooks.Error(types.NewItemError(path, err))
	}
}

func (w *Walker) cancelled(ctx context.Context) bool {
	if w.tracker != nil && w.tracker.Cancelled() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
