// Package pipeline assembles the scan stages into one concurrent session.
//
// A session runs one producer per root feeding a bounded queue, a fixed
// pool of workers that collect metadata, classify, and partial-hash each
// item, and a post-drain confirmation phase that full-hashes partial
// collisions into duplicate groups. The adaptive scheduler publishes how
// many pooled workers may be active at any moment; workers above the
// target park instead of pulling work, so scaling down never abandons an
// item mid-flight.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reclaimtool/reclaim/pkg/reclaim/classify"
	"github.com/reclaimtool/reclaim/pkg/reclaim/config"
	"github.com/reclaimtool/reclaim/pkg/reclaim/dupes"
	"github.com/reclaimtool/reclaim/pkg/reclaim/hash"
	"github.com/reclaimtool/reclaim/pkg/reclaim/logging"
	"github.com/reclaimtool/reclaim/pkg/reclaim/metadata"
	"github.com/reclaimtool/reclaim/pkg/reclaim/progress"
	"github.com/reclaimtool/reclaim/pkg/reclaim/sched"
	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
	"github.com/reclaimtool/reclaim/pkg/reclaim/walk"
)

const (
	// defaultEventInterval is the progress event cadence when the caller
	// does not choose one.
	defaultEventInterval = 500 * time.Millisecond

	// parkPoll is how often a parked worker rechecks the target.
	parkPoll = 100 * time.Millisecond
)

// Options configure a Pipeline.
type Options struct {
	// Config is the validated scan configuration. Required.
	Config *config.ScanConfig

	// Tracker receives counter updates and carries cancellation. A nil
	// tracker is replaced with a fresh one.
	Tracker *progress.Tracker

	// Broadcaster receives periodic progress events plus a final event.
	// Nil disables event emission.
	Broadcaster *progress.Broadcaster

	// Scheduler publishes the worker target. A nil scheduler is built
	// from Config.
	Scheduler *sched.Scheduler

	// WarmStartWorkers seeds the scheduler target from a previous
	// session. Ignored when Scheduler is supplied.
	WarmStartWorkers int

	// EventInterval overrides the progress event cadence.
	EventInterval time.Duration

	// Now supplies the clock used for classification age checks and the
	// session duration. Defaults to time.Now.
	Now func() time.Time
}

// Result is everything a completed session produced. A cancelled session
// still returns a Result holding whatever was gathered before the stop.
type Result struct {
	Summary         types.ScanSummary
	Classifications []types.Classification
	Groups          []types.DuplicateGroup
}

// Pipeline wires the traversal, collection, classification, and duplicate
// detection stages together for one scan session.
type Pipeline struct {
	cfg       *config.ScanConfig
	tracker   *progress.Tracker
	bus       *progress.Broadcaster
	scheduler *sched.Scheduler
	clsf      *classify.Classifier
	coll      *metadata.Collector
	log       *logging.Logger

	eventInterval time.Duration
	now           func() time.Time

	mu      sync.Mutex
	errs    []types.ItemError
	cycles  []string
	classes []types.Classification
}

// New validates options and builds a Pipeline ready to Run once.
func New(opts Options) (*Pipeline, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("%w: pipeline requires a resolved configuration", types.ErrConfigInvalid)
	}
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("%w: at least one scan path is required", types.ErrConfigInvalid)
	}

	tracker := opts.Tracker
	if tracker == nil {
		tracker = progress.NewTracker()
	}

	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = sched.New(sched.Options{
			Mode:             cfg.Mode,
			MaxThreads:       cfg.MaxThreads,
			IOThrottling:     cfg.IOThrottling,
			WarmStartWorkers: opts.WarmStartWorkers,
			Tuning:           sched.DefaultTuning(cfg.CPULimitPercent, cfg.MemoryLimitMB),
		})
	}

	interval := opts.EventInterval
	if interval <= 0 {
		interval = defaultEventInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		cfg:       cfg,
		tracker:   tracker,
		bus:       opts.Broadcaster,
		scheduler: scheduler,
		clsf: classify.New(classify.Thresholds{
			TempFileAge:        cfg.TempFileAge,
			LargeFileThreshold: cfg.LargeFileThreshold,
			DevFolderMinSize:   cfg.DevFolderMinSize,
			TempExtensions:     cfg.TempExtensions,
		}),
		coll:          metadata.NewCollector(tracker),
		log:           logging.Get("pipeline"),
		eventInterval: interval,
		now:           now,
	}, nil
}

// Run executes the session until the queue drains or cancellation is
// observed. Cancellation is not an error: Run returns a Result either way
// and the summary reason records how the session ended.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	sessionID := uuid.NewString()
	started := p.tracker.Started()

	if ctx.Err() != nil {
		p.tracker.Cancel()
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancellation flows one way: outside contexts funnel into the
	// tracker's cancel-once, and the tracker's done channel stops the
	// run context that every stage watches.
	go func() {
		select {
		case <-ctx.Done():
			p.tracker.Cancel()
		case <-p.tracker.Done():
		case <-runCtx.Done():
			return
		}
		cancel()
	}()

	roots := normalizeRoots(p.cfg.Paths)
	p.log.Info("session starting", "session", sessionID, "roots", len(roots), "workers", p.scheduler.MaxWorkers())

	go func() {
		if n := walk.CountFiles(runCtx, roots); n > 0 {
			p.tracker.SetEstimatedTotal(n)
		}
	}()

	go p.scheduler.Run(runCtx)

	stopEvents := p.startEvents()

	queue := make(chan types.FileRef, p.scheduler.QueueSize())

	walker, err := walk.New(walk.Options{
		ExcludePatterns: p.cfg.ExcludePatterns,
		MaxDepth:        p.cfg.MaxDepth,
		FollowSymlinks:  p.cfg.FollowSymlinks,
	}, p.tracker, walk.Hooks{
		Emit: func(ref types.FileRef) {
			select {
			case queue <- ref:
			case <-runCtx.Done():
			}
		},
		Error:   p.recordError,
		Cycle:   p.recordCycle,
		DirUnit: p.evaluateDirUnit,
	})
	if err != nil {
		stopEvents()
		return nil, err
	}

	var producers sync.WaitGroup
	for _, root := range roots {
		producers.Add(1)
		go func(root string) {
			defer producers.Done()
			if walkErr := walker.Walk(runCtx, root); walkErr != nil && !errors.Is(walkErr, types.ErrCancelled) {
				p.log.Error("walk failed", "root", root, "error", walkErr)
			}
		}(root)
	}

	// drained closes before the queue so parked workers can retire once
	// no new work will arrive. Active workers keep consuming until the
	// closed queue is empty.
	drained := make(chan struct{})
	go func() {
		producers.Wait()
		close(drained)
		close(queue)
	}()

	index := dupes.NewIndex()

	seats := p.scheduler.MaxWorkers()
	var pool sync.WaitGroup
	for seat := 0; seat < seats; seat++ {
		pool.Add(1)
		go p.worker(runCtx, seat, queue, drained, index, &pool)
	}
	pool.Wait()

	groups := p.confirmDuplicates(runCtx, index)

	stopEvents()

	result := p.buildResult(sessionID, started, groups)
	p.log.Info("session finished",
		"session", sessionID,
		"reason", string(result.Summary.Reason),
		"files", result.Summary.TotalFiles,
		"groups", result.Summary.GroupCount,
		"reclaimable", types.FormatSize(result.Summary.ReclaimableBytes))

	if p.bus != nil {
		p.bus.Notify(p.event(true))
	}
	return result, nil
}

// worker consumes queue items while its seat is below the published
// target. Seat zero never parks because the target never drops below one,
// so the queue always drains even when every other seat is parked.
func (p *Pipeline) worker(ctx context.Context, seat int, queue <-chan types.FileRef, drained <-chan struct{}, index *dupes.Index, pool *sync.WaitGroup) {
	defer pool.Done()

	for {
		if p.tracker.Cancelled() {
			return
		}

		if seat >= p.scheduler.Target() {
			select {
			case <-ctx.Done():
				return
			case <-drained:
				return
			case <-time.After(parkPoll):
			}
			continue
		}

		select {
		case ref, ok := <-queue:
			if !ok {
				return
			}
			p.process(ctx, ref, index)
		case <-ctx.Done():
			return
		}
	}
}

// process runs one item through collection, classification, and the
// partial hash index. Failures are recorded and the item is dropped; they
// never stop the session.
func (p *Pipeline) process(ctx context.Context, ref types.FileRef, index *dupes.Index) {
	if err := p.scheduler.Wait(ctx); err != nil {
		return
	}

	p.tracker.SetCurrentPath(ref.Path)

	meta, err := p.coll.Collect(ref)
	if err != nil {
		p.recordItemError(err)
		return
	}
	if meta.IsDir {
		return
	}

	if !ref.SkipClassify {
		if cls := p.clsf.Classify(meta, p.now()); cls.Category != types.CategoryOther {
			p.recordClassification(cls)
		}
	}

	if meta.Size >= p.cfg.MinFileSize {
		partial, hashErr := hash.Partial(meta.Path)
		if hashErr != nil {
			p.tracker.AddError()
			p.recordItemError(hashErr)
			return
		}
		index.Add(partial, dupes.Member{
			Path:    meta.Path,
			Size:    meta.Size,
			ModTime: meta.ModTime,
			Order:   ref.Order,
		})
	}
}

// confirmDuplicates full-hashes every member of every partial collision
// bucket and groups confirmed matches. Runs after the queue drains so the
// candidate set is complete. On cancellation the groups confirmed so far
// are still returned.
func (p *Pipeline) confirmDuplicates(ctx context.Context, index *dupes.Index) []types.DuplicateGroup {
	grouper := dupes.NewGrouper()
	candidates := index.Candidates()
	if len(candidates) == 0 {
		return grouper.Finalize()
	}

	work := make(chan []dupes.Member)
	var wg sync.WaitGroup

	workers := max(p.scheduler.Target(), 1)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for members := range work {
				for _, m := range members {
					if p.tracker.Cancelled() {
						return
					}
					if err := p.scheduler.Wait(ctx); err != nil {
						return
					}
					p.tracker.SetCurrentPath(m.Path)

					digest, err := hash.Full(ctx, m.Path)
					if err != nil {
						if errors.Is(err, types.ErrCancelled) {
							return
						}
						p.tracker.AddError()
						p.recordItemError(err)
						continue
					}
					grouper.Add(digest, m)
				}
			}
		}()
	}

feed:
	for _, members := range candidates {
		select {
		case work <- members:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	return grouper.Finalize()
}

// startEvents launches the cadence emitter and returns its stop function.
// The stop function waits for the emitter to exit so the final event is
// always the last one delivered.
func (p *Pipeline) startEvents() func() {
	if p.bus == nil {
		return func() {}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(p.eventInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.bus.Notify(p.event(false))
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}
}

// event assembles one progress event from the live tracker and scheduler.
func (p *Pipeline) event(final bool) progress.Event {
	ev := progress.Event{
		Snapshot: p.tracker.Snapshot(),
		Mode:     p.scheduler.State().String(),
		Workers:  p.scheduler.Target(),
	}
	if final {
		ev.Final = true
		ev.Reason = p.tracker.Reason()
	}
	return ev
}

// evaluateDirUnit decides whether a directory should be reported as one
// cleanup unit. A true return tells the walker to suppress per-file
// classification beneath it.
func (p *Pipeline) evaluateDirUnit(path string, _ int) bool {
	if !classify.IsDevDir(filepath.Base(path)) {
		return false
	}
	cls, ok := p.clsf.Directory(path, walk.TreeSize(path))
	if !ok {
		return false
	}
	p.recordClassification(cls)
	return true
}

// buildResult snapshots the session into its final form. Classifications
// are ordered by path so repeated scans of an unchanged tree produce
// identical reports.
func (p *Pipeline) buildResult(sessionID string, started time.Time, groups []types.DuplicateGroup) *Result {
	p.mu.Lock()
	classes := append([]types.Classification(nil), p.classes...)
	errs := append([]types.ItemError(nil), p.errs...)
	cycles := append([]string(nil), p.cycles...)
	p.mu.Unlock()

	sort.Slice(classes, func(i, j int) bool { return classes[i].Path < classes[j].Path })

	var reclaimable int64
	for _, g := range groups {
		reclaimable += g.WastedBytes()
	}
	for _, cls := range classes {
		if cls.Action == types.ActionDelete {
			reclaimable += cls.Size
		}
	}

	return &Result{
		Summary: types.ScanSummary{
			SessionID:        sessionID,
			Started:          started,
			Duration:         p.now().Sub(started),
			TotalFiles:       p.tracker.Files(),
			TotalDirs:        p.tracker.Dirs(),
			TotalBytes:       p.tracker.Bytes(),
			Reason:           p.tracker.Reason(),
			Errors:           errs,
			CycleNotes:       cycles,
			GroupCount:       len(groups),
			ReclaimableBytes: reclaimable,
		},
		Classifications: classes,
		Groups:          groups,
	}
}

func (p *Pipeline) recordError(ie types.ItemError) {
	p.mu.Lock()
	p.errs = append(p.errs, ie)
	p.mu.Unlock()
}

// recordItemError extracts the ItemError shape from err when present.
// Errors without item context are not reportable per path and are dropped
// after the counter bump the caller already performed.
func (p *Pipeline) recordItemError(err error) {
	var ie types.ItemError
	if errors.As(err, &ie) {
		p.recordError(ie)
	}
}

func (p *Pipeline) recordCycle(path string) {
	p.mu.Lock()
	p.cycles = append(p.cycles, path)
	p.mu.Unlock()
}

func (p *Pipeline) recordClassification(cls types.Classification) {
	p.mu.Lock()
	p.classes = append(p.classes, cls)
	p.mu.Unlock()
}

// normalizeRoots cleans, absolutizes, and deduplicates scan roots. Roots
// nested under another root are dropped so shared subtrees are traversed
// once.
func normalizeRoots(paths []string) []string {
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		cleaned = append(cleaned, abs)
	}
	sort.Strings(cleaned)

	roots := make([]string, 0, len(cleaned))
	for _, p := range cleaned {
		nested := false
		for _, kept := range roots {
			if p == kept || strings.HasPrefix(p, kept+string(filepath.Separator)) {
				nested = true
				break
			}
		}
		if !nested {
			roots = append(roots, p)
		}
	}
	return roots
}
