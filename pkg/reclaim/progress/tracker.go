// Package progress provides the shared progress and cancellation state for
// one scan session, plus the event broadcaster that fans snapshots out to
// consumers. Counters are updated with atomic operations; a session creates
// one Tracker at start and discards it at session end.
package progress

import (
	"sync/atomic"
	"time"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// Snapshot is a point-in-time view of scan progress. Rate and ETA are
// derived from a rolling window of recent samples, so they adapt to
// recent throughput rather than the whole-session average.
type Snapshot struct {
	// Files is the number of files collected so far.
	Files int64 `json:"files"`

	// Dirs is the number of directories collected so far.
	Dirs int64 `json:"dirs"`

	// Bytes is the total size of collected files so far.
	Bytes int64 `json:"bytes"`

	// Errors is the number of per-item failures recorded so far.
	Errors int64 `json:"errors"`

	// CurrentPath is the path most recently handed to a worker.
	CurrentPath string `json:"current_path"`

	// Started is the session start time.
	Started time.Time `json:"started"`

	// Elapsed is the wall-clock time since the session started.
	Elapsed time.Duration `json:"elapsed"`

	// Cancelled reports whether the session has been cancelled.
	Cancelled bool `json:"cancelled"`

	// FilesPerSec is the recent file throughput.
	FilesPerSec float64 `json:"files_per_sec"`

	// BytesPerSec is the recent byte throughput.
	BytesPerSec float64 `json:"bytes_per_sec"`

	// EstimatedTotal is the expected file count, or 0 while unknown.
	EstimatedTotal int64 `json:"estimated_total,omitempty"`

	// ETA is the projected time to completion, or 0 while the total is
	// unknown or throughput is zero.
	ETA time.Duration `json:"eta,omitempty"`
}

// Tracker is the session-scoped progress and cancellation bus. All methods
// are safe for concurrent use from any goroutine.
type Tracker struct {
	files  atomic.Int64
	dirs   atomic.Int64
	bytes  atomic.Int64
	errors atomic.Int64

	currentPath atomic.Value // string
	cancelled   atomic.Bool
	estTotal    atomic.Int64

	started time.Time
	window  *window
	done    chan struct{}
}

// NewTracker creates a Tracker for a new session starting now.
func NewTracker() *Tracker {
	t := &Tracker{
		started: time.Now(),
		window:  newWindow(defaultWindowSpan),
		done:    make(chan struct{}),
	}
	t.currentPath.Store("")
	return t
}

// AddFile records one successfully collected file of the given size.
func (t *Tracker) AddFile(size int64) {
	t.files.Add(1)
	t.bytes.Add(size)
}

// AddDir records one successfully collected directory.
func (t *Tracker) AddDir() {
	t.dirs.Add(1)
}

// AddError records one per-item failure.
func (t *Tracker) AddError() {
	t.errors.Add(1)
}

// SetCurrentPath records the path currently being processed.
func (t *Tracker) SetCurrentPath(path string) {
	t.currentPath.Store(path)
}

// SetEstimatedTotal supplies the expected file count once known. A zero or
// negative value keeps the total unknown.
func (t *Tracker) SetEstimatedTotal(n int64) {
	if n > 0 {
		t.estTotal.Store(n)
	}
}

// Cancel trips the cancellation flag and closes the Done channel. It is
// idempotent; the first call returns true, repeats return false and have
// no further effect.
func (t *Tracker) Cancel() bool {
	if t.cancelled.CompareAndSwap(false, true) {
		close(t.done)
		return true
	}
	return false
}

// Cancelled reports whether the session has been cancelled.
func (t *Tracker) Cancelled() bool {
	return t.cancelled.Load()
}

// Done returns a channel closed on the first Cancel, for select-based
// waiters that cannot poll.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Files returns the file counter.
func (t *Tracker) Files() int64 { return t.files.Load() }

// Bytes returns the byte counter.
func (t *Tracker) Bytes() int64 { return t.bytes.Load() }

// Dirs returns the directory counter.
func (t *Tracker) Dirs() int64 { return t.dirs.Load() }

// Errors returns the error counter.
func (t *Tracker) Errors() int64 { return t.errors.Load() }

// Started returns the session start time.
func (t *Tracker) Started() time.Time { return t.started }

// Reason returns the completion reason implied by the cancellation flag.
func (t *Tracker) Reason() types.Reason {
	if t.Cancelled() {
		return types.ReasonCancelled
	}
	return types.ReasonFinished
}

// Snapshot produces a point-in-time progress view and feeds the rolling
// rate window with the current counters.
func (t *Tracker) Snapshot() Snapshot {
	now := time.Now()
	files := t.files.Load()
	bytes := t.bytes.Load()

	filesRate, bytesRate := t.window.observe(now, files, bytes)

	s := Snapshot{
		Files:          files,
		Dirs:           t.dirs.Load(),
		Bytes:          bytes,
		Errors:         t.errors.Load(),
		CurrentPath:    t.currentPath.Load().(string),
		Started:        t.started,
		Elapsed:        now.Sub(t.started),
		Cancelled:      t.cancelled.Load(),
		FilesPerSec:    filesRate,
		BytesPerSec:    bytesRate,
		EstimatedTotal: t.estTotal.Load(),
	}

	if s.EstimatedTotal > 0 && filesRate > 0 {
		remaining := s.EstimatedTotal - files
		if remaining > 0 {
			s.ETA = time.Duration(float64(remaining) / filesRate * float64(time.Second))
		}
	}

	return s
}
