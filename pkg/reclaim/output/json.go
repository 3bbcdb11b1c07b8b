package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// jsonReport represents the full JSON output structure.
type jsonReport struct {
	Summary         jsonSummary        `json:"summary"`
	Classifications []jsonSuggestion   `json:"classifications"`
	DuplicateGroups []jsonDuplicateSet `json:"duplicate_groups"`
}

// jsonSummary represents session statistics in JSON output.
type jsonSummary struct {
	SessionID        string   `json:"session_id"`
	Started          string   `json:"started"`
	Duration         string   `json:"duration"`
	Reason           string   `json:"reason"`
	TotalFiles       int64    `json:"total_files"`
	TotalDirs        int64    `json:"total_dirs"`
	TotalSize        int64    `json:"total_size"`
	TotalSizeHuman   string   `json:"total_size_human"`
	GroupCount       int      `json:"group_count"`
	Reclaimable      int64    `json:"reclaimable"`
	ReclaimableHuman string   `json:"reclaimable_human"`
	Errors           []string `json:"errors,omitempty"`
	CycleNotes       []string `json:"cycle_notes,omitempty"`
}

// jsonSuggestion represents one cleanup suggestion in JSON output.
type jsonSuggestion struct {
	Path       string  `json:"path"`
	Category   string  `json:"category"`
	Action     string  `json:"action"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
	Size       int64   `json:"size"`
	SizeHuman  string  `json:"size_human"`
	Unit       bool    `json:"unit,omitempty"`
}

// jsonDuplicateSet represents one duplicate group in JSON output.
type jsonDuplicateSet struct {
	Hash        string   `json:"hash"`
	Size        int64    `json:"size"`
	SizeHuman   string   `json:"size_human"`
	Members     []string `json:"members"`
	Keeper      string   `json:"keeper"`
	Wasted      int64    `json:"wasted"`
	WastedHuman string   `json:"wasted_human"`
}

// JSONFormatter formats output as a single indented JSON object.
// It produces a complete JSON document with summary, classifications,
// and duplicate group sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Report) error {
	report := f.buildReport(r)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// buildReport converts Report to the JSON output structure.
func (f *JSONFormatter) buildReport(r *Report) jsonReport {
	suggestions := make([]jsonSuggestion, len(r.Classifications))
	for i, cls := range r.Classifications {
		suggestions[i] = jsonSuggestion{
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

	groups := make([]jsonDuplicateSet, len(r.Groups))
	for i, g := range r.Groups {
		groups[i] = jsonDuplicateSet{
			Hash:        g.Hash,
			Size:        g.Size,
			SizeHuman:   types.FormatSize(g.Size),
			Members:     g.Members,
			Keeper:      g.Keeper,
			Wasted:      g.WastedBytes(),
			WastedHuman: types.FormatSize(g.WastedBytes()),
		}
	}

	return jsonReport{
		Summary:         buildJSONSummary(r.Summary),
		Classifications: suggestions,
		DuplicateGroups: groups,
	}
}

// buildJSONSummary flattens a session summary for serialization.
func buildJSONSummary(s types.ScanSummary) jsonSummary {
	errs := make([]string, 0, len(s.Errors))
	for _, ie := range s.Errors {
		errs = append(errs, ie.Error())
	}

	return jsonSummary{
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
	}
}

// formatDurationString formats a duration as a string for serialization.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// jsonRow is a flattened suggestion with a discriminator for streaming.
type jsonRow struct {
	Type      string `json:"type"`
	Category  string `json:"category"`
	Action    string `json:"action"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
	Path      string `json:"path"`
	Detail    string `json:"detail,omitempty"`
}

// JSONLFormatter formats output as newline-delimited JSON (one object per
// line). Each suggestion row is written as a compact JSON object on its
// own line. This format is suitable for streaming processing with tools
// like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Report) error {
	for _, row := range r.Rows() {
		rowType := "classification"
		if row.Category == rowCategoryDuplicate {
			rowType = "duplicate"
		}

		data, err := json.Marshal(jsonRow{
			Type:      rowType,
			Category:  row.Category,
			Action:    row.Action,
			Size:      row.Size,
			SizeHuman: types.FormatSize(row.Size),
			Path:      row.Path,
			Detail:    row.Detail,
		})
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
