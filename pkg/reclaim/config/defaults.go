// Package config provides configuration management for the reclaim disk
// analyzer.
package config

// Default configuration values.
const (
	// DefaultMaxDepth bounds traversal depth below each scan root.
	DefaultMaxDepth = 10

	// DefaultMinFileSize is the smallest file considered for duplicate
	// detection. Smaller files are classified but never hashed.
	DefaultMinFileSize = "1 KB"

	// DefaultMode is the scheduling mode when none is configured.
	DefaultMode = "background"

	// DefaultMaxThreads is the worker pool ceiling.
	DefaultMaxThreads = 4

	// DefaultMemoryLimitMB is the process memory budget watched by the
	// scheduler.
	DefaultMemoryLimitMB = 1024

	// DefaultCPULimitPercent is the CPU high-water mark for throttling.
	DefaultCPULimitPercent = 80

	// DefaultTempFileAge is how old a file must be before temp rules apply.
	DefaultTempFileAge = "30d"

	// DefaultLargeFileThreshold is the size above which files are flagged
	// as large media or relocatable archives.
	DefaultLargeFileThreshold = "500 MB"

	// DefaultDevFolderMinSize is the aggregate size a development artifact
	// directory must reach before it is suggested for cleanup.
	DefaultDevFolderMinSize = "50 MB"

	// DefaultHistoryMaxSessions caps the number of stored scan sessions.
	DefaultHistoryMaxSessions = 50
)

// DefaultExcludePatterns are glob patterns skipped during traversal.
var DefaultExcludePatterns = []string{
	"**/.git/**",
	"**/__pycache__/**",
	"**/node_modules/**",
}

// DefaultTempExtensions mark files as temporary when combined with age.
var DefaultTempExtensions = []string{".tmp", ".bak", ".old"}
