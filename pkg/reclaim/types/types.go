// Package types provides the core data model for the reclaim disk analyzer.
// It defines the values that flow between the traversal, classification,
// hashing, and grouping stages, along with utility functions for parsing
// and formatting file sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// FileRef identifies a discovered filesystem entry pending metadata
// collection. A path appears at most once per session, even when it is
// reachable through multiple symlinked routes.
type FileRef struct {
	// Path is the absolute path to the entry.
	Path string `json:"path"`

	// Depth is the entry's depth relative to its scan root (roots are 0).
	Depth int `json:"depth"`

	// Order is the discovery sequence number within the session.
	Order uint64 `json:"order"`

	// IsDir reports whether the entry is a directory.
	IsDir bool `json:"is_dir,omitempty"`

	// SkipClassify is set for entries beneath a directory that was already
	// classified as a unit; such entries still participate in duplicate
	// detection but receive no per-file classification.
	SkipClassify bool `json:"-"`
}

// FileMetadata captures the stat-level facts about one filesystem entry.
// Values are immutable once built; stages derive new values rather than
// mutating records in place.
type FileMetadata struct {
	// Path is the absolute path to the entry.
	Path string `json:"path"`

	// Size is the entry size in bytes.
	Size int64 `json:"size"`

	// ModTime is the last modification time.
	ModTime time.Time `json:"mod_time"`

	// CreateTime is the creation time (zero where the platform or
	// filesystem does not record one).
	CreateTime time.Time `json:"create_time,omitempty"`

	// IsDir reports whether the entry is a directory.
	IsDir bool `json:"is_dir,omitempty"`

	// Hidden reports whether the entry is hidden by platform convention.
	Hidden bool `json:"hidden,omitempty"`

	// System reports whether the entry carries a platform system attribute.
	System bool `json:"system,omitempty"`

	// ReadOnly reports whether the entry is not writable by its owner.
	ReadOnly bool `json:"read_only,omitempty"`
}

// HumanSize returns the entry size formatted as a human-readable string
// using binary (IEC) units.
func (m *FileMetadata) HumanSize() string {
	return FormatSize(m.Size)
}

// Age returns the time elapsed since the entry was last modified.
func (m *FileMetadata) Age(now time.Time) time.Duration {
	return now.Sub(m.ModTime)
}

// Category labels the cleanup category assigned to a file or directory.
type Category string

// Categories, in rule priority order.
const (
	CategoryDevArtifact Category = "dev-artifact"
	CategoryTemp        Category = "temp"
	CategoryLargeMedia  Category = "large-media"
	CategoryArchive     Category = "relocatable-archive"
	CategoryOther       Category = "other"
)

// Action is the cleanup action suggested for a classified entry.
type Action string

// Suggested actions.
const (
	ActionDelete   Action = "delete"
	ActionReview   Action = "review"
	ActionRelocate Action = "relocate"
	ActionKeep     Action = "keep"
)

// Classification is the outcome of rule evaluation for one entry.
// Regular files receive at most one Classification; a directory classified
// as a unit suppresses per-file classification beneath it.
type Classification struct {
	// Path is the classified file or directory.
	Path string `json:"path"`

	// Category is the assigned cleanup category.
	Category Category `json:"category"`

	// Action is the suggested follow-up for this entry.
	Action Action `json:"action"`

	// Rationale explains, in one human-readable sentence, why the rule
	// matched.
	Rationale string `json:"rationale"`

	// Confidence is the rule specificity score in [0, 1].
	Confidence float64 `json:"confidence"`

	// Size is the entry size in bytes (aggregate size for unit-classified
	// directories).
	Size int64 `json:"size"`

	// Unit is set when a directory was classified as a whole.
	Unit bool `json:"unit,omitempty"`
}

// DuplicateGroup is a set of files with identical size and content hash.
type DuplicateGroup struct {
	// Hash is the hex-encoded full content digest shared by all members.
	Hash string `json:"hash"`

	// Size is the byte size shared by all members.
	Size int64 `json:"size"`

	// Members are the absolute paths of the duplicate files. A reported
	// group always has at least two members.
	Members []string `json:"members"`

	// Keeper is the member recommended for retention.
	Keeper string `json:"keeper"`
}

// WastedBytes returns the bytes recoverable by keeping only the keeper.
func (g *DuplicateGroup) WastedBytes() int64 {
	if len(g.Members) < 2 {
		return 0
	}
	return g.Size * int64(len(g.Members)-1)
}

// Reason records how a scan session ended.
type Reason string

// Completion reasons.
const (
	ReasonFinished  Reason = "finished"
	ReasonCancelled Reason = "cancelled"
)

// ScanSummary is the terminal aggregate for one scan session.
type ScanSummary struct {
	// SessionID uniquely identifies the scan session.
	SessionID string `json:"session_id"`

	// Started is the session start time.
	Started time.Time `json:"started"`

	// Duration is the wall-clock time the session ran.
	Duration time.Duration `json:"duration"`

	// TotalFiles is the number of files successfully collected.
	TotalFiles int64 `json:"total_files"`

	// TotalDirs is the number of directories successfully collected.
	TotalDirs int64 `json:"total_dirs"`

	// TotalBytes is the sum of collected file sizes.
	TotalBytes int64 `json:"total_bytes"`

	// Reason is why the session ended.
	Reason Reason `json:"reason"`

	// Errors lists the per-item failures recorded during the session.
	Errors []ItemError `json:"errors,omitempty"`

	// CycleNotes lists symlink cycles that were detected and skipped.
	// These are informational, not errors.
	CycleNotes []string `json:"cycle_notes,omitempty"`

	// GroupCount is the number of duplicate groups reported.
	GroupCount int `json:"group_count"`

	// ReclaimableBytes estimates the space recoverable by acting on the
	// duplicate groups and delete-suggested classifications.
	ReclaimableBytes int64 `json:"reclaimable_bytes"`
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in
// bytes. It supports plain byte counts ("1024"), a byte suffix ("512B"),
// and K/M/G/T multipliers with optional B or iB suffixes ("100K", "50MiB",
// "2GB"). Decimal values are truncated to the nearest byte; surrounding
// whitespace is ignored.
//
// Returns ErrInvalidSize if the format is not recognized and
// ErrNegativeSize if the value is negative.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units, matching common filesystem tools.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
