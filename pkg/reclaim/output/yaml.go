package output

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// yamlReport represents the full YAML output structure.
type yamlReport struct {
	Summary         yamlSummary        `yaml:"summary"`
	Classifications []yamlSuggestion   `yaml:"classifications"`
	DuplicateGroups []yamlDuplicateSet `yaml:"duplicate_groups"`
}

// yamlSummary represents session statistics in YAML output.
type yamlSummary struct {
	SessionID        string   `yaml:"session_id"`
	Started          string   `yaml:"started"`
	Duration         string   `yaml:"duration"`
	Reason           string   `yaml:"reason"`
	TotalFiles       int64    `yaml:"total_files"`
	TotalDirs        int64    `yaml:"total_dirs"`
	TotalSize        int64    `yaml:"total_size"`
	TotalSizeHuman   string   `yaml:"total_size_human"`
	GroupCount       int      `yaml:"group_count"`
	Reclaimable      int64    `yaml:"reclaimable"`
	ReclaimableHuman string   `yaml:"reclaimable_human"`
	Errors           []string `yaml:"errors,omitempty"`
	CycleNotes       []string `yaml:"cycle_notes,omitempty"`
}

// yamlSuggestion represents one cleanup suggestion in YAML output.
type yamlSuggestion struct {
	Path       string  `yaml:"path"`
	Category   string  `yaml:"category"`
	Action     string  `yaml:"action"`
	Rationale  string  `yaml:"rationale"`
	Confidence float64 `yaml:"confidence"`
	Size       int64   `yaml:"size"`
	SizeHuman  string  `yaml:"size_human"`
	Unit       bool    `yaml:"unit,omitempty"`
}

// yamlDuplicateSet represents one duplicate group in YAML output.
type yamlDuplicateSet struct {
	Hash        string   `yaml:"hash"`
	Size        int64    `yaml:"size"`
	SizeHuman   string   `yaml:"size_human"`
	Members     []string `yaml:"members"`
	Keeper      string   `yaml:"keeper"`
	Wasted      int64    `yaml:"wasted"`
	WastedHuman string   `yaml:"wasted_human"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter but in YAML format.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Report) error {
	report := f.buildReport(r)

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(report); err != nil {
		return err
	}
	return encoder.Close()
}

// buildReport converts Report to the YAML output structure.
func (f *YAMLFormatter) buildReport(r *Report) yamlReport {
	suggestions := make([]yamlSuggestion, len(r.Classifications))
	for i, cls := range r.Classifications {
		suggestions[i] = yamlSuggestion{
			Path:       cls.Path,
			Category:   string(cls.Category),
			Action:     string(cls.Action),
			Rationale:  cls.Rationale,
			Confidence: cls.Confidence,
			Size:       cls.Size,
			SizeHuman:  types.FormatSize(cls.Size),
			Unit:       cls.Unit,
		}
	}

	groups := make([]yamlDuplicateSet, len(r.Groups))
	for i, g := range r.Groups {
		groups[i] = yamlDuplicateSet{
			Hash:        g.Hash,
			Size:        g.Size,
			SizeHuman:   types.FormatSize(g.Size),
			Members:     g.Members,
			Keeper:      g.Keeper,
			Wasted:      g.WastedBytes(),
			WastedHuman: types.FormatSize(g.WastedBytes()),
		}
	}

	s := r.Summary
	errs := make([]string, 0, len(s.Errors))
	for _, ie := range s.Errors {
		errs = append(errs, ie.Error())
	}

	return yamlReport{
		Summary: yamlSummary{
			SessionID:        s.SessionID,
			Started:          s.Started.Format(time.RFC3339),
			Duration:         formatDurationString(s.Duration),
			Reason:           string(s.Reason),
			TotalFiles:       s.TotalFiles,
			TotalDirs:        s.TotalDirs,
			TotalSize:        s.TotalBytes,
			TotalSizeHuman:   types.FormatSize(s.TotalBytes),
			GroupCount:       s.GroupCount,
			Reclaimable:      s.ReclaimableBytes,
			ReclaimableHuman: types.FormatSize(s.ReclaimableBytes),
			Errors:           errs,
			CycleNotes:       s.CycleNotes,
		},
		Classifications: suggestions,
		DuplicateGroups: groups,
	}
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
