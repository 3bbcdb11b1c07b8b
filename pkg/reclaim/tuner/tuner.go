// Package tuner detects system resources and derives the starting worker
// and queue sizing for a scan. Detection never fails hard; when the
// platform refuses to answer, conservative defaults stand in so a scan can
// always start.
package tuner

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64

	// AvailableRAM is the available RAM in bytes. This may be an
	// estimate based on system heuristics.
	AvailableRAM int64
}

// defaultTotalRAM is the fallback when memory detection fails.
const defaultTotalRAM = 8 * types.GiB

// Detect reports logical CPU cores and memory. Failures fall back to
// runtime.NumCPU and an 8 GiB assumption with half of it available.
func Detect() SystemResources {
	res := SystemResources{
		CPUCores:     runtime.NumCPU(),
		TotalRAM:     int64(defaultTotalRAM),
		AvailableRAM: int64(defaultTotalRAM) / 2,
	}

	if cores, err := cpu.Counts(true); err == nil && cores > 0 {
		res.CPUCores = cores
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm.Total > 0 {
		res.TotalRAM = int64(vm.Total)
		res.AvailableRAM = int64(vm.Available)
	}

	return res
}

// Worker and queue sizing constants.
const (
	// smallRAMLimit caps workers at smallRAMWorkers on machines with
	// this much total RAM or less. Hashing workers hold read buffers
	// and the queue holds paths, so tight machines stay tight.
	smallRAMLimit   = 4 * types.GiB
	smallRAMWorkers = 2

	// modestRAMLimit is the next tier up.
	modestRAMLimit   = 8 * types.GiB
	modestRAMWorkers = 4

	// minQueueSize is the minimum bounded queue capacity.
	minQueueSize = 100

	// maxQueueSize is the maximum bounded queue capacity.
	maxQueueSize = 100000

	// bytesPerQueueEntry estimates memory per queued item, roughly a
	// path string plus metadata.
	bytesPerQueueEntry = 512

	// queueMemoryFraction is the fraction of available RAM the queue
	// may claim. Small, since file content buffers dominate memory.
	queueMemoryFraction = 0.05
)

// OptimalConfig contains starting sizes for a scan session.
type OptimalConfig struct {
	// Workers is the initial processing worker count.
	Workers int

	// QueueSize is the bounded work queue capacity.
	QueueSize int
}

// Calculate derives the starting configuration from detected resources.
//
// The calculation logic:
//   - Workers start at the supplied ceiling, then total RAM tiers cap
//     them so hashing buffers cannot squeeze small machines
//   - QueueSize scales with available RAM between fixed bounds
func Calculate(res SystemResources, workerCeiling int) OptimalConfig {
	workers := workerCeiling
	switch {
	case res.TotalRAM <= smallRAMLimit:
		workers = min(workers, smallRAMWorkers)
	case res.TotalRAM <= modestRAMLimit:
		workers = min(workers, modestRAMWorkers)
	}
	workers = max(workers, 1)

	return OptimalConfig{
		Workers:   workers,
		QueueSize: calculateQueueSize(res.AvailableRAM),
	}
}

// calculateQueueSize determines queue capacity from available memory.
func calculateQueueSize(availableRAM int64) int {
	queueMemory := float64(availableRAM) * queueMemoryFraction
	entries := int(queueMemory / bytesPerQueueEntry)

	entries = max(entries, minQueueSize)
	entries = min(entries, maxQueueSize)
	return entries
}
