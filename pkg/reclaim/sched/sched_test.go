package sched

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/reclaimtool/reclaim/pkg/reclaim/tuner"
	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

func bigMachine() tuner.SystemResources {
	return tuner.SystemResources{
		CPUCores:     8,
		TotalRAM:     32 * types.GiB,
		AvailableRAM: 16 * types.GiB,
	}
}

// fastTuning makes transitions observable within a test run.
func fastTuning() Tuning {
	return Tuning{
		Interval:  2 * time.Millisecond,
		HighWater: 80,
		LowWater:  40,
		Debounce:  2,
		MinDwell:  0,
		EWMAAlpha: 1.0,
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "background", StateBackground.String())
	assert.Equal(t, "foreground", StateForeground.String())
	assert.Equal(t, "throttled", StateThrottled.String())
}

func TestDefaultTuning(t *testing.T) {
	tun := DefaultTuning(80, 1024)

	assert.Equal(t, time.Second, tun.Interval)
	assert.Equal(t, 80.0, tun.HighWater)
	assert.Equal(t, 55.0, tun.LowWater)
	assert.Equal(t, 3, tun.Debounce)
	assert.Equal(t, 3*time.Second, tun.MinDwell)
	assert.Equal(t, int64(1024*types.MiB), tun.MemoryLimit)

	// A very low CPU limit must not push the low mark to nothing.
	low := DefaultTuning(20, 512)
	assert.Equal(t, 10.0, low.LowWater)
}

func TestNewBackgroundCeiling(t *testing.T) {
	s := New(Options{
		Mode:      ModeBackground,
		Tuning:    fastTuning(),
		Resources: bigMachine(),
	})

	assert.Equal(t, StateBackground, s.State())
	assert.Equal(t, 2, s.MaxWorkers())
	assert.Equal(t, 2, s.Target())
}

func TestNewForegroundUsesCores(t *testing.T) {
	s := New(Options{
		Mode:      ModeForeground,
		Tuning:    fastTuning(),
		Resources: bigMachine(),
	})

	assert.Equal(t, StateForeground, s.State())
	assert.Equal(t, 8, s.MaxWorkers())
}

func TestNewForegroundRefusedOnFewCores(t *testing.T) {
	res := bigMachine()
	res.CPUCores = 2

	s := New(Options{
		Mode:      ModeForeground,
		Tuning:    fastTuning(),
		Resources: res,
	})

	assert.Equal(t, StateBackground, s.State())
	assert.LessOrEqual(t, s.MaxWorkers(), 2)
}

func TestNewMaxThreadsCap(t *testing.T) {
	s := New(Options{
		Mode:       ModeForeground,
		MaxThreads: 3,
		Tuning:     fastTuning(),
		Resources:  bigMachine(),
	})

	assert.Equal(t, 3, s.MaxWorkers())
}

func TestWarmStartClamped(t *testing.T) {
	s := New(Options{
		Mode:             ModeForeground,
		WarmStartWorkers: 50,
		Tuning:           fastTuning(),
		Resources:        bigMachine(),
	})
	assert.Equal(t, s.MaxWorkers(), s.Target())

	s = New(Options{
		Mode:             ModeForeground,
		WarmStartWorkers: 1,
		Tuning:           fastTuning(),
		Resources:        bigMachine(),
	})
	assert.Equal(t, 1, s.Target())
}

func TestThrottleAndRecover(t *testing.T) {
	s := New(Options{
		Mode:      ModeForeground,
		Tuning:    fastTuning(),
		Resources: bigMachine(),
	})

	var load atomic.Value
	load.Store(95.0)
	s.cpuFn = func() (float64, error) {
		return load.Load().(float64), nil
	}
	s.rssFn = func() int64 { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool {
		return s.State() == StateThrottled && s.Target() == 1
	}, 2*time.Second, time.Millisecond, "sustained load should throttle")

	load.Store(10.0)
	require.Eventually(t, func() bool {
		return s.State() == StateForeground && s.Target() == s.MaxWorkers()
	}, 2*time.Second, time.Millisecond, "calm load should restore the base posture")
}

func TestPressureShedsOneWorkerAtATime(t *testing.T) {
	tun := fastTuning()
	tun.MinDwell = 150 * time.Millisecond

	s := New(Options{
		Mode:      ModeForeground,
		Tuning:    tun,
		Resources: bigMachine(),
	})

	s.cpuFn = func() (float64, error) { return 95.0, nil }
	s.rssFn = func() int64 { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// The first adjustment removes exactly one worker; a jump straight to
	// the floor would never be observed at full-1.
	full := s.MaxWorkers()
	require.Eventually(t, func() bool {
		return s.Target() == full-1
	}, 2*time.Second, time.Millisecond)

	// Still shedding, so the posture has not changed yet.
	assert.Equal(t, StateForeground, s.State())
}

func TestRecoveryRestoresOneWorkerAtATime(t *testing.T) {
	tun := fastTuning()
	tun.MinDwell = 150 * time.Millisecond

	s := New(Options{
		Mode:      ModeForeground,
		Tuning:    tun,
		Resources: bigMachine(),
	})
	s.state.Store(int32(StateThrottled))
	s.target.Store(throttledWorkerTarget)

	s.cpuFn = func() (float64, error) { return 10.0, nil }
	s.rssFn = func() int64 { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// The first recovery step leaves Throttled and restores one worker,
	// not the whole pool.
	require.Eventually(t, func() bool {
		return s.Target() == throttledWorkerTarget+1
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, StateForeground, s.State())
}

func TestMemoryPressureThrottles(t *testing.T) {
	tun := fastTuning()
	tun.MemoryLimit = 100 * types.MiB

	s := New(Options{
		Mode:      ModeBackground,
		Tuning:    tun,
		Resources: bigMachine(),
	})

	// CPU stays calm; memory alone must trip the throttle.
	s.cpuFn = func() (float64, error) { return 10.0, nil }
	s.rssFn = func() int64 { return int64(200 * types.MiB) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool {
		return s.State() == StateThrottled
	}, 2*time.Second, time.Millisecond)
}

func TestDwellBlocksImmediateRecovery(t *testing.T) {
	tun := fastTuning()
	tun.Debounce = 1
	tun.MinDwell = 300 * time.Millisecond

	// Four cores keeps the stepwise descent to the floor short.
	res := bigMachine()
	res.CPUCores = 4

	s := New(Options{
		Mode:      ModeForeground,
		Tuning:    tun,
		Resources: res,
	})

	var load atomic.Value
	load.Store(95.0)
	s.cpuFn = func() (float64, error) {
		return load.Load().(float64), nil
	}
	s.rssFn = func() int64 { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool {
		return s.State() == StateThrottled
	}, 3*time.Second, time.Millisecond)

	// Load drops at once, but the dwell period pins the throttled state.
	load.Store(10.0)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StateThrottled, s.State())

	require.Eventually(t, func() bool {
		return s.State() == StateForeground
	}, 2*time.Second, time.Millisecond)
}

func TestTargetStaysWithinBounds(t *testing.T) {
	s := New(Options{
		Mode:      ModeForeground,
		Tuning:    fastTuning(),
		Resources: bigMachine(),
	})

	// Alternating bursts of load and calm exercise both directions.
	seq := []float64{95, 95, 95, 10, 10, 95, 10, 10, 10, 95, 95, 10}
	var idx atomic.Int64
	s.cpuFn = func() (float64, error) {
		i := idx.Add(1)
		return seq[int(i)%len(seq)], nil
	}
	s.rssFn = func() int64 { return 0 }

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	var violated atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ctx.Err() == nil {
			if tgt := s.Target(); tgt < 1 || tgt > s.MaxWorkers() {
				violated.Store(true)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	s.Run(ctx)
	<-done
	assert.False(t, violated.Load())
}

func TestLimiterArming(t *testing.T) {
	s := New(Options{
		Mode:         ModeBackground,
		IOThrottling: true,
		Tuning:       fastTuning(),
		Resources:    bigMachine(),
	})

	require.NotNil(t, s.limiter)
	assert.Equal(t, rate.Inf, s.limiter.Limit())
	require.NoError(t, s.Wait(context.Background()))

	s.throttle(95, 0)
	assert.Equal(t, rate.Limit(throttledItemsPerSec), s.limiter.Limit())

	s.unthrottle(10)
	assert.Equal(t, rate.Inf, s.limiter.Limit())
}

func TestWaitWithoutLimiter(t *testing.T) {
	s := New(Options{
		Mode:      ModeBackground,
		Tuning:    fastTuning(),
		Resources: bigMachine(),
	})

	assert.Nil(t, s.limiter)
	assert.NoError(t, s.Wait(context.Background()))
}

func TestEWMA(t *testing.T) {
	assert.InDelta(t, 50.0, ewma(0, 50, 1.0), 1e-9)
	assert.InDelta(t, 35.0, ewma(30, 40, 0.5), 1e-9)

	// Out-of-range alpha degrades to the raw sample.
	assert.True(t, math.Abs(ewma(30, 40, 0)-40) < 1e-9)
}
