package walk

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/reclaimtool/reclaim/pkg/reclaim/progress"
	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// collector gathers hook output for assertions.
type collector struct {
	mu     sync.Mutex
	refs   []types.FileRef
	errs   []types.ItemError
	cycles []string
}

func (c *collector) hooks() Hooks {
	return Hooks{
		Emit: func(ref types.FileRef) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.refs = append(c.refs, ref)
		},
		Error: func(ie types.ItemError) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.errs = append(c.errs, ie)
		},
		Cycle: func(path string) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.cycles = append(c.cycles, path)
		},
	}
}

func (c *collector) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.refs))
	for _, ref := range c.refs {
		paths = append(paths, ref.Path)
	}
	sort.Strings(paths)
	return paths
}

func (c *collector) find(path string) (types.FileRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ref := range c.refs {
		if ref.Path == path {
			return ref, true
		}
	}
	return types.FileRef{}, false
}

// createTestTree builds a directory structure for walking.
// Returns the root path.
//
//	root/
//	  a.txt
//	  sub/
//	    b.txt
//	    deep/
//	      c.txt
//	  .git/
//	    config
//	  node_modules/
//	    pkg/
//	      index.js
func createTestTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	dirs := []string{
		filepath.Join(root, "sub", "deep"),
		filepath.Join(root, ".git"),
		filepath.Join(root, "node_modules", "pkg"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create dir %s: %v", dir, err)
		}
	}

	files := []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "sub", "b.txt"),
		filepath.Join(root, "sub", "deep", "c.txt"),
		filepath.Join(root, ".git", "config"),
		filepath.Join(root, "node_modules", "pkg", "index.js"),
	}
	for _, file := range files {
		if err := os.WriteFile(file, []byte("content"), 0o644); err != nil {
			t.Fatalf("failed to create file %s: %v", file, err)
		}
	}

	return root
}

func TestWalkEmitsFilesAndDirs(t *testing.T) {
	root := createTestTree(t)
	c := &collector{}

	w, err := New(Options{}, nil, c.hooks())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Walk(context.Background(), root); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	rootRef, ok := c.find(root)
	if !ok {
		t.Fatalf("root %s not emitted", root)
	}
	if !rootRef.IsDir || rootRef.Depth != 0 {
		t.Errorf("root ref: got IsDir=%v depth=%d, want dir at depth 0", rootRef.IsDir, rootRef.Depth)
	}

	deepFile := filepath.Join(root, "sub", "deep", "c.txt")
	fileRef, ok := c.find(deepFile)
	if !ok {
		t.Fatalf("file %s not emitted", deepFile)
	}
	if fileRef.IsDir {
		t.Errorf("expected %s emitted as a file", deepFile)
	}
	if fileRef.Depth != 3 {
		t.Errorf("depth: got %d, want 3", fileRef.Depth)
	}

	// 5 files and 5 directories, nothing excluded.
	if len(c.refs) != 10 {
		t.Errorf("expected 10 refs, got %d: %v", len(c.refs), c.paths())
	}

	seen := make(map[uint64]bool)
	for _, ref := range c.refs {
		if ref.Order == 0 {
			t.Errorf("ref %s has zero emission order", ref.Path)
		}
		if seen[ref.Order] {
			t.Errorf("duplicate emission order %d", ref.Order)
		}
		seen[ref.Order] = true
	}
}

func TestWalkExcludePatterns(t *testing.T) {
	root := createTestTree(t)
	c := &collector{}

	w, err := New(Options{
		ExcludePatterns: []string{"**/.git/**", "**/node_modules/**"},
	}, nil, c.hooks())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Walk(context.Background(), root); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	for _, path := range c.paths() {
		if filepath.Base(path) == ".git" || filepath.Base(path) == "node_modules" {
			t.Errorf("excluded directory emitted: %s", path)
		}
		rel, _ := filepath.Rel(root, path)
		slashed := filepath.ToSlash(rel)
		if strings.HasPrefix(slashed, ".git/") || strings.HasPrefix(slashed, "node_modules/") {
			t.Errorf("entry beneath excluded directory emitted: %s", path)
		}
	}

	if _, ok := c.find(filepath.Join(root, "sub", "b.txt")); !ok {
		t.Error("non-excluded file missing from emissions")
	}
}

func TestWalkExcludePrefix(t *testing.T) {
	root := createTestTree(t)
	c := &collector{}

	w, err := New(Options{
		ExcludePrefixes: []string{filepath.Join(root, "sub")},
	}, nil, c.hooks())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Walk(context.Background(), root); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if _, ok := c.find(filepath.Join(root, "sub")); ok {
		t.Error("prefix-excluded directory was emitted")
	}
	if _, ok := c.find(filepath.Join(root, "sub", "b.txt")); ok {
		t.Error("file under prefix-excluded directory was emitted")
	}
	if _, ok := c.find(filepath.Join(root, "a.txt")); !ok {
		t.Error("sibling of excluded prefix missing")
	}
}

func TestWalkInvalidPattern(t *testing.T) {
	c := &collector{}
	_, err := New(Options{ExcludePatterns: []string{"[unterminated"}}, nil, c.hooks())
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	if !errors.Is(err, types.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestWalkMaxDepth(t *testing.T) {
	root := createTestTree(t)
	c := &collector{}

	w, err := New(Options{MaxDepth: 2}, nil, c.hooks())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Walk(context.Background(), root); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if _, ok := c.find(filepath.Join(root, "sub", "b.txt")); !ok {
		t.Error("file at max depth missing")
	}
	if _, ok := c.find(filepath.Join(root, "sub", "deep")); ok {
		t.Error("directory beyond max depth was entered")
	}
	if _, ok := c.find(filepath.Join(root, "sub", "deep", "c.txt")); ok {
		t.Error("file beyond max depth was emitted")
	}
}

func TestWalkCancellation(t *testing.T) {
	root := createTestTree(t)
	c := &collector{}
	tracker := progress.NewTracker()
	tracker.Cancel()

	w, err := New(Options{}, tracker, c.hooks())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = w.Walk(context.Background(), root)
	if !errors.Is(err, types.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(c.refs) != 0 {
		t.Errorf("expected no emissions after cancellation, got %d", len(c.refs))
	}
}

func TestWalkContextCancellation(t *testing.T) {
	root := createTestTree(t)
	c := &collector{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, err := New(Options{}, nil, c.hooks())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Walk(ctx, root); !errors.Is(err, types.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	c := &collector{}
	tracker := progress.NewTracker()

	w, err := New(Options{}, tracker, c.hooks())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	if err := w.Walk(context.Background(), missing); err != nil {
		t.Fatalf("Walk should not fail for a missing root: %v", err)
	}

	if len(c.refs) != 0 {
		t.Errorf("expected no emissions, got %d", len(c.refs))
	}
	if len(c.errs) != 1 {
		t.Fatalf("expected 1 recorded error, got %d", len(c.errs))
	}
	if c.errs[0].Kind != types.KindNotFound {
		t.Errorf("error kind: got %s, want %s", c.errs[0].Kind, types.KindNotFound)
	}
	if tracker.Errors() != 1 {
		t.Errorf("tracker errors: got %d, want 1", tracker.Errors())
	}
}

func TestWalkSingleFileRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "only.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	c := &collector{}
	w, err := New(Options{}, nil, c.hooks())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Walk(context.Background(), file); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if len(c.refs) != 1 {
		t.Fatalf("expected 1 ref, got %d", len(c.refs))
	}
	if c.refs[0].IsDir {
		t.Error("file root emitted as directory")
	}
}

func TestWalkSymlinkCycle(t *testing.T) {
	root := t.TempDir()
	inner := filepath.Join(root, "inner")
	if err := os.MkdirAll(inner, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(inner, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := os.Symlink(root, filepath.Join(inner, "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	c := &collector{}
	w, err := New(Options{FollowSymlinks: true}, nil, c.hooks())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Walk(context.Background(), root); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if len(c.cycles) != 1 {
		t.Fatalf("expected 1 cycle note, got %d: %v", len(c.cycles), c.cycles)
	}
	if c.cycles[0] != filepath.Join(inner, "loop") {
		t.Errorf("cycle path: got %s", c.cycles[0])
	}

	// The inner directory and its file appear exactly once despite the
	// second route through the link.
	count := 0
	for _, ref := range c.refs {
		if ref.Path == filepath.Join(inner, "f.txt") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("file behind cycle emitted %d times, want 1", count)
	}
	if len(c.errs) != 0 {
		t.Errorf("cycle should not count as an error, got %v", c.errs)
	}
}

func TestWalkSymlinksNotFollowed(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(target, "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := os.Symlink(target, filepath.Join(root, "alias")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	c := &collector{}
	w, err := New(Options{FollowSymlinks: false}, nil, c.hooks())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Walk(context.Background(), root); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if _, ok := c.find(filepath.Join(root, "alias")); ok {
		t.Error("symlink emitted despite follow disabled")
	}

	count := 0
	for _, ref := range c.refs {
		if ref.Path == filepath.Join(target, "f.txt") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("target file emitted %d times, want 1", count)
	}
	if len(c.cycles) != 0 {
		t.Errorf("unexpected cycle notes: %v", c.cycles)
	}
}

func TestWalkDirUnitSuppression(t *testing.T) {
	root := createTestTree(t)
	c := &collector{}

	var hookCalls []string
	hooks := c.hooks()
	hooks.DirUnit = func(path string, depth int) bool {
		hookCalls = append(hookCalls, path)
		return filepath.Base(path) == "node_modules"
	}

	w, err := New(Options{}, nil, hooks)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Walk(context.Background(), root); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	unit := filepath.Join(root, "node_modules")
	unitRef, ok := c.find(unit)
	if !ok {
		t.Fatalf("unit directory not emitted")
	}
	if !unitRef.SkipClassify {
		t.Error("unit directory should carry the suppression mark")
	}

	under := filepath.Join(root, "node_modules", "pkg", "index.js")
	underRef, ok := c.find(under)
	if !ok {
		t.Fatalf("file under unit not emitted")
	}
	if !underRef.SkipClassify {
		t.Error("file beneath unit directory should carry the suppression mark")
	}

	outside, ok := c.find(filepath.Join(root, "a.txt"))
	if !ok {
		t.Fatalf("file outside unit not emitted")
	}
	if outside.SkipClassify {
		t.Error("file outside unit should not be suppressed")
	}

	// Directories inside a suppressed subtree are not offered again.
	for _, call := range hookCalls {
		if call == filepath.Join(root, "node_modules", "pkg") {
			t.Error("hook consulted inside an already suppressed subtree")
		}
	}
}

func TestTreeSize(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	files := []struct {
		path string
		size int64
	}{
		{filepath.Join(root, "a.bin"), 1000},
		{filepath.Join(root, "sub", "b.bin"), 2500},
	}
	for _, f := range files {
		if err := createFileOfSize(f.path, f.size); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}

	if got := TreeSize(root); got != 3500 {
		t.Errorf("TreeSize: got %d, want 3500", got)
	}
	if got := TreeSize(filepath.Join(root, "missing")); got != 0 {
		t.Errorf("TreeSize of missing dir: got %d, want 0", got)
	}
}

func TestCountFiles(t *testing.T) {
	root := createTestTree(t)

	got := CountFiles(context.Background(), []string{root})
	if got != 5 {
		t.Errorf("CountFiles: got %d, want 5", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := CountFiles(ctx, []string{root}); got > 5 {
		t.Errorf("cancelled count exceeded total: %d", got)
	}
}

// createFileOfSize creates a file with the specified size.
func createFileOfSize(path string, size int64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if size > 0 {
		if err := f.Truncate(size); err != nil {
			_ = f.Close()
			return err
		}
	}
	return f.Close()
}
