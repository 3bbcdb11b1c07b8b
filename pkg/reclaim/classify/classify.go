// Package classify evaluates cleanup rules over file metadata. Rules are
// checked in a fixed priority order and the first match wins, so every
// entry receives exactly one category. Evaluation is pure: no I/O beyond
// what metadata and the path string already carry, and classifying the
// same input twice yields the same result.
package classify

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// Confidence scores by rule specificity. A rule matching path, age, and
// extension together scores above one matching extension alone.
const (
	confidenceTempFull      = 0.95
	confidenceDevArtifact   = 0.90
	confidenceTempLocation  = 0.85
	confidenceTempExtension = 0.75
	confidenceLargeArchive  = 0.75
	confidenceLargeMedia    = 0.70
	confidenceLargeUnknown  = 0.55
	confidenceOther         = 0.30
)

// Thresholds hold the tunable rule boundaries, taken from validated
// configuration.
type Thresholds struct {
	// TempFileAge is the minimum age before temp rules apply.
	TempFileAge time.Duration

	// LargeFileThreshold is the size above which a file is flagged large.
	LargeFileThreshold int64

	// DevFolderMinSize is the aggregate size a development artifact
	// directory must reach to be suggested for cleanup.
	DevFolderMinSize int64

	// TempExtensions are the extensions treated as temporary files.
	TempExtensions []string
}

// Classifier applies the cleanup rules. It is immutable after construction
// and safe for concurrent use.
type Classifier struct {
	thresholds Thresholds
	tempExts   map[string]struct{}
}

// New builds a Classifier from thresholds.
func New(t Thresholds) *Classifier {
	exts := make(map[string]struct{}, len(t.TempExtensions))
	for _, ext := range t.TempExtensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &Classifier{thresholds: t, tempExts: exts}
}

// Classify assigns a category to one regular file. Rules, in priority
// order: aged temp files, then large files split by extension into
// relocatable archives and large media, then the default. Directory-unit
// classification happens separately through Directory.
func (c *Classifier) Classify(meta types.FileMetadata, now time.Time) types.Classification {
	if cls, ok := c.classifyTemp(meta, now); ok {
		return cls
	}
	if cls, ok := c.classifyLarge(meta); ok {
		return cls
	}

	return types.Classification{
		Path:       meta.Path,
		Category:   types.CategoryOther,
		Action:     types.ActionKeep,
		Rationale:  "no cleanup rule matched",
		Confidence: confidenceOther,
		Size:       meta.Size,
	}
}

// classifyTemp applies the temp rule: age beyond the threshold combined
// with a temp location or a temp extension.
func (c *Classifier) classifyTemp(meta types.FileMetadata, now time.Time) (types.Classification, bool) {
	age := meta.Age(now)
	if age <= c.thresholds.TempFileAge {
		return types.Classification{}, false
	}

	inTempDir := InTempLocation(meta.Path)
	_, tempExt := c.tempExts[Ext(meta.Path)]
	if !inTempDir && !tempExt {
		return types.Classification{}, false
	}

	confidence := confidenceTempExtension
	rationale := fmt.Sprintf("unmodified for %d days with temporary extension", int(age.Hours()/24))
	switch {
	case inTempDir && tempExt:
		confidence = confidenceTempFull
		rationale = fmt.Sprintf("unmodified for %d days in a temporary location with temporary extension", int(age.Hours()/24))
	case inTempDir:
		confidence = confidenceTempLocation
		rationale = fmt.Sprintf("unmodified for %d days in a temporary location", int(age.Hours()/24))
	}

	return types.Classification{
		Path:       meta.Path,
		Category:   types.CategoryTemp,
		Action:     types.ActionDelete,
		Rationale:  rationale,
		Confidence: confidence,
		Size:       meta.Size,
	}, true
}

// classifyLarge applies the large-file rule, discriminating archives from
// media by extension.
func (c *Classifier) classifyLarge(meta types.FileMetadata) (types.Classification, bool) {
	if meta.Size <= c.thresholds.LargeFileThreshold {
		return types.Classification{}, false
	}

	ext := Ext(meta.Path)
	size := types.FormatSize(meta.Size)

	if IsArchiveExt(ext) {
		return types.Classification{
			Path:       meta.Path,
			Category:   types.CategoryArchive,
			Action:     types.ActionRelocate,
			Rationale:  fmt.Sprintf("archive of %s suited to offline storage", size),
			Confidence: confidenceLargeArchive,
			Size:       meta.Size,
		}, true
	}

	confidence := confidenceLargeUnknown
	rationale := fmt.Sprintf("large file of %s", size)
	if IsMediaExt(ext) {
		confidence = confidenceLargeMedia
		rationale = fmt.Sprintf("media file of %s", size)
	}

	return types.Classification{
		Path:       meta.Path,
		Category:   types.CategoryLargeMedia,
		Action:     types.ActionReview,
		Rationale:  rationale,
		Confidence: confidence,
		Size:       meta.Size,
	}, true
}

// Directory classifies a whole directory as a development artifact when
// its name matches a known pattern and its aggregate size reaches the
// threshold. The aggregate size is supplied by the caller; evaluation
// itself stays pure. A true return means per-file classification beneath
// this directory should be suppressed.
func (c *Classifier) Directory(path string, aggregateSize int64) (types.Classification, bool) {
	name := filepath.Base(path)
	if !IsDevDir(name) {
		return types.Classification{}, false
	}
	if aggregateSize < c.thresholds.DevFolderMinSize {
		return types.Classification{}, false
	}

	return types.Classification{
		Path:       path,
		Category:   types.CategoryDevArtifact,
		Action:     types.ActionDelete,
		Rationale:  fmt.Sprintf("%s directory totals %s and can be regenerated", name, types.FormatSize(aggregateSize)),
		Confidence: confidenceDevArtifact,
		Size:       aggregateSize,
		Unit:       true,
	}, true
}
