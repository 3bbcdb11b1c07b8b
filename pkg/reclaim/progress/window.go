package progress

import (
	"sync"
	"time"
)

// defaultWindowSpan bounds how far back rate samples reach.
const defaultWindowSpan = 10 * time.Second

// sample is one observation of the monotonic counters.
type sample struct {
	at    time.Time
	files int64
	bytes int64
}

// window keeps recent counter samples and derives throughput from the
// oldest retained sample, giving rates that track recent behavior instead
// of the whole-session average.
type window struct {
	mu      sync.Mutex
	span    time.Duration
	samples []sample
}

func newWindow(span time.Duration) *window {
	return &window{span: span}
}

// observe appends a sample, drops samples older than the span, and returns
// the files/sec and bytes/sec rates across the retained window. With fewer
// than two samples both rates are zero.
func (w *window) observe(now time.Time, files, bytes int64) (float64, float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples = append(w.samples, sample{at: now, files: files, bytes: bytes})

	cutoff := now.Add(-w.span)
	firstKeep := 0
	for firstKeep < len(w.samples)-1 && w.samples[firstKeep].at.Before(cutoff) {
		firstKeep++
	}
	if firstKeep > 0 {
		w.samples = append(w.samples[:0], w.samples[firstKeep:]...)
	}

	if len(w.samples) < 2 {
		return 0, 0
	}

	oldest := w.samples[0]
	secs := now.Sub(oldest.at).Seconds()
	if secs <= 0 {
		return 0, 0
	}

	return float64(files-oldest.files) / secs, float64(bytes-oldest.bytes) / secs
}
