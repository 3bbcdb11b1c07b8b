// Package sched adapts scan concurrency to system load.
//
// The scheduler runs a sampling loop beside the pipeline and publishes a
// target worker count. It never interrupts running work; workers compare
// the target between items and retire or respawn to match. State changes
// ride on watermark hysteresis so a single load spike cannot flap the
// worker pool.
package sched

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/time/rate"

	"github.com/reclaimtool/reclaim/pkg/reclaim/logging"
	"github.com/reclaimtool/reclaim/pkg/reclaim/tuner"
	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// State is the scheduler's operating posture.
type State int32

const (
	// StateBackground keeps the scan polite: at most two workers.
	StateBackground State = iota

	// StateForeground uses every core.
	StateForeground

	// StateThrottled runs a single worker until pressure clears.
	StateThrottled
)

func (s State) String() string {
	switch s {
	case StateForeground:
		return "foreground"
	case StateThrottled:
		return "throttled"
	default:
		return "background"
	}
}

// Mode names accepted from configuration.
const (
	ModeBackground = "background"
	ModeForeground = "foreground"
)

const (
	throttledWorkerTarget = 1

	// throttledItemsPerSec bounds queue intake while throttled when IO
	// throttling is armed.
	throttledItemsPerSec = 100

	// fewCoreLimit is the core count at or below which foreground mode
	// is refused and the scan stays in the background posture.
	fewCoreLimit = 2
)

// Tuning holds the control loop knobs.
type Tuning struct {
	// Interval is the sampling cadence.
	Interval time.Duration

	// HighWater is the smoothed CPU percentage that signals pressure.
	HighWater float64

	// LowWater is the smoothed CPU percentage below which pressure is
	// considered cleared. Samples between the marks hold position.
	LowWater float64

	// Debounce is how many consecutive samples below the low mark are
	// needed before a recovery step fires. Shedding reacts to any sample
	// over the high mark once the dwell period has passed.
	Debounce int

	// MinDwell is the minimum time between adjustments.
	MinDwell time.Duration

	// EWMAAlpha is the smoothing factor for CPU samples.
	EWMAAlpha float64

	// MemoryLimit is the process RSS in bytes treated as exhaustion.
	// Zero disables the memory signal.
	MemoryLimit int64
}

// DefaultTuning derives loop knobs from the configured CPU and memory
// limits. The low water mark sits well under the high mark so recovery
// needs genuinely lower load, not a lull.
func DefaultTuning(cpuLimitPercent, memoryLimitMB int) Tuning {
	high := float64(cpuLimitPercent)
	return Tuning{
		Interval:    time.Second,
		HighWater:   high,
		LowWater:    max(high-25, 10),
		Debounce:    3,
		MinDwell:    3 * time.Second,
		EWMAAlpha:   0.30,
		MemoryLimit: int64(memoryLimitMB) * types.MiB,
	}
}

// Options configure a Scheduler.
type Options struct {
	// Mode is the requested posture, ModeBackground or ModeForeground.
	Mode string

	// MaxThreads caps the worker ceiling regardless of mode. Zero means
	// no extra cap.
	MaxThreads int

	// IOThrottling arms an intake rate limiter while throttled.
	IOThrottling bool

	// WarmStartWorkers seeds the initial target from a previous session.
	// Clamped into the valid range; zero means start at full speed.
	WarmStartWorkers int

	// Tuning holds the control loop knobs.
	Tuning Tuning

	// Resources are the detected system resources. The zero value
	// triggers detection.
	Resources tuner.SystemResources
}

// Scheduler publishes the worker target for a scan session.
type Scheduler struct {
	base   State
	full   int
	queue  int
	tuning Tuning

	state  atomic.Int32
	target atomic.Int32

	limiter *rate.Limiter
	proc    *process.Process
	log     *logging.Logger

	cpuFn func() (float64, error)
	rssFn func() int64
}

// New resolves the effective posture and sizing. Foreground requests on
// machines with two or fewer cores are demoted to background so the scan
// cannot saturate a small host.
func New(opts Options) *Scheduler {
	res := opts.Resources
	if res.CPUCores <= 0 {
		res = tuner.Detect()
	}

	log := logging.Get("sched")

	base := StateBackground
	if opts.Mode == ModeForeground {
		if res.CPUCores > fewCoreLimit {
			base = StateForeground
		} else {
			log.Info("foreground refused on few cores, staying background", "cores", res.CPUCores)
		}
	}

	ceiling := ceilingFor(base, res.CPUCores)
	if opts.MaxThreads > 0 {
		ceiling = min(ceiling, opts.MaxThreads)
	}
	sized := tuner.Calculate(res, ceiling)

	s := &Scheduler{
		base:   base,
		full:   sized.Workers,
		queue:  sized.QueueSize,
		tuning: opts.Tuning,
		proc:   currentProcess(),
		log:    log,
	}
	s.cpuFn = sampleCPU
	s.rssFn = s.sampleRSS

	initial := s.full
	if opts.WarmStartWorkers > 0 {
		initial = min(max(opts.WarmStartWorkers, 1), s.full)
	}
	s.state.Store(int32(base))
	s.target.Store(int32(initial))

	if opts.IOThrottling {
		s.limiter = rate.NewLimiter(rate.Inf, 1)
	}

	return s
}

// ceilingFor returns the worker ceiling for a posture on the given cores.
func ceilingFor(state State, cores int) int {
	cores = max(cores, 1)
	switch state {
	case StateForeground:
		return cores
	case StateThrottled:
		return throttledWorkerTarget
	default:
		return min(cores, 2)
	}
}

// Target is the worker count the pipeline should converge on. Always
// within [1, MaxWorkers].
func (s *Scheduler) Target() int {
	return int(s.target.Load())
}

// MaxWorkers is the full-speed worker count for this session.
func (s *Scheduler) MaxWorkers() int {
	return s.full
}

// QueueSize is the bounded work queue capacity sized for this machine.
func (s *Scheduler) QueueSize() int {
	return s.queue
}

// State returns the current posture.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Wait blocks until the intake limiter admits one item. A nil limiter or
// an unthrottled one admits immediately.
func (s *Scheduler) Wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// Run samples load at the tuning cadence until ctx is done. Pressure
// sheds one worker per dwell period, entering Throttled only once the
// floor is reached; a debounced run of calm samples restores one worker
// per dwell period, leaving Throttled on the first step.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.tuning.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var (
		cpuEWMA    float64
		primed     bool
		relief     int
		lastAdjust time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sample, err := s.cpuFn()
		if err != nil || sample <= 0 {
			continue
		}
		if !primed {
			cpuEWMA = sample
			primed = true
		} else {
			cpuEWMA = ewma(cpuEWMA, sample, s.tuning.EWMAAlpha)
		}

		rss := s.rssFn()
		overMemory := s.tuning.MemoryLimit > 0 && rss > s.tuning.MemoryLimit

		hot := overMemory || cpuEWMA > s.tuning.HighWater
		if !overMemory && cpuEWMA < s.tuning.LowWater {
			relief++
		} else {
			relief = 0
		}

		now := time.Now()
		if !lastAdjust.IsZero() && now.Sub(lastAdjust) < s.tuning.MinDwell {
			continue
		}

		switch {
		case hot:
			if cur := s.Target(); cur > throttledWorkerTarget {
				s.target.Store(int32(cur - 1))
				s.log.Info("shedding one worker under pressure",
					"cpu_ewma", cpuEWMA,
					"rss", rss,
					"workers", cur-1)
				lastAdjust = now
			} else if s.State() != StateThrottled {
				s.throttle(cpuEWMA, rss)
				lastAdjust = now
			}
		case relief >= s.tuning.Debounce:
			if s.State() == StateThrottled {
				s.unthrottle(cpuEWMA)
			}
			if cur := s.Target(); cur < s.full {
				s.target.Store(int32(cur + 1))
				s.log.Debug("restoring one worker",
					"cpu_ewma", cpuEWMA,
					"workers", cur+1)
			}
			lastAdjust = now
			relief = 0
		}
	}
}

// throttle enters the Throttled posture. The target is already at the
// floor when this fires; the store pins it there.
func (s *Scheduler) throttle(cpuEWMA float64, rss int64) {
	s.state.Store(int32(StateThrottled))
	s.target.Store(throttledWorkerTarget)
	if s.limiter != nil {
		s.limiter.SetLimit(rate.Limit(throttledItemsPerSec))
		s.limiter.SetBurst(throttledItemsPerSec)
	}
	s.log.Warn("resource pressure detected, throttling",
		"kind", types.KindResourceExhausted,
		"cpu_ewma", cpuEWMA,
		"rss", rss,
		"workers", throttledWorkerTarget)
}

// unthrottle restores the base posture. Worker recovery is stepwise and
// handled by the sampling loop, not here.
func (s *Scheduler) unthrottle(cpuEWMA float64) {
	s.state.Store(int32(s.base))
	if s.limiter != nil {
		s.limiter.SetLimit(rate.Inf)
		s.limiter.SetBurst(1)
	}
	s.log.Info("resource pressure cleared",
		"cpu_ewma", cpuEWMA,
		"state", s.base.String())
}

func (s *Scheduler) sampleRSS() int64 {
	if s.proc == nil {
		return 0
	}
	info, err := s.proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return int64(info.RSS)
}

func currentProcess() *process.Process {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil
	}
	return proc
}

// sampleCPU reads system-wide CPU usage since the previous call. The first
// sample of a run can come back zero and is skipped by the loop.
func sampleCPU() (float64, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return 0, err
	}
	return percents[0], nil
}

func ewma(prev, sample, alpha float64) float64 {
	if alpha <= 0 || alpha > 1 {
		return sample
	}
	return alpha*sample + (1-alpha)*prev
}
