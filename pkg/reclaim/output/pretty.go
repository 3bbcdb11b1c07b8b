package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// durationRounding trims sub-millisecond noise from displayed durations.
const durationRounding = 10 * time.Millisecond

// PrettyFormatter formats output with colors and styling using lipgloss.
// It produces a visually appealing report suitable for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	w.WriteString(f.formatSuggestions(r))

	if len(r.Groups) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatGroups(r))
	}

	w.WriteString(f.formatFooter(r))

	if len(r.Summary.Errors) > 0 || len(r.Summary.CycleNotes) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r))
	}

	return nil
}

// formatHeader builds the header box with session metadata.
func (f *PrettyFormatter) formatHeader(r *Report) string {
	s := r.Summary
	var lines []string

	sessionLabel := LabelStyle.Render("Session:")
	sessionValue := ValueStyle.Render(shortID(s.SessionID))
	lines = append(lines, fmt.Sprintf("%s %s", sessionLabel, sessionValue))

	scannedLabel := LabelStyle.Render("Scanned:")
	scannedValue := ValueStyle.Render(fmt.Sprintf("%d files, %d dirs (%s) in %s",
		s.TotalFiles, s.TotalDirs, humanize.IBytes(uint64(s.TotalBytes)),
		formatDuration(s.Duration)))
	lines = append(lines, fmt.Sprintf("%s %s", scannedLabel, scannedValue))

	if s.Reason == types.ReasonCancelled {
		cancelledStyle := WarningStyle.Bold(true)
		lines = append(lines, cancelledStyle.Render("Scan cancelled; results are partial"))
	}

	content := strings.Join(lines, "\n")
	return HeaderBox.Render(content)
}

// formatSuggestions builds the cleanup suggestion table.
func (f *PrettyFormatter) formatSuggestions(r *Report) string {
	if len(r.Classifications) == 0 {
		return MutedStyle.Render("  No cleanup suggestions\n")
	}

	var sb strings.Builder

	categoryHeader := TableHeaderStyle.Render("CATEGORY")
	actionHeader := TableHeaderStyle.Render("ACTION")
	sizeHeader := TableHeaderStyle.Render("SIZE")
	pathHeader := TableHeaderStyle.Render("PATH")
	sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n", categoryHeader, actionHeader, sizeHeader, pathHeader))

	maxSizeWidth := 8
	for _, cls := range r.Classifications {
		if n := len(humanize.IBytes(uint64(cls.Size))); n > maxSizeWidth {
			maxSizeWidth = n
		}
	}

	for _, cls := range r.Classifications {
		category := CategoryStyle(cls.Category).Render(padRight(string(cls.Category), 19))
		action := ActionStyle(cls.Action).Render(padRight(string(cls.Action), 8))
		size := SizeStyle.Render(padLeft(humanize.IBytes(uint64(cls.Size)), maxSizeWidth))
		path := PathStyle.Render(cls.Path)
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n", category, action, size, path))
		sb.WriteString(MutedStyle.Render(fmt.Sprintf("      %s (%.0f%%)", cls.Rationale, cls.Confidence*100)))
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatGroups builds the duplicate group listing. Each group shows its
// size and waste, then every member with the keeper highlighted.
func (f *PrettyFormatter) formatGroups(r *Report) string {
	var sb strings.Builder

	sb.WriteString(TitleStyle.Render("Duplicates"))
	sb.WriteString("\n")

	for _, g := range r.Groups {
		heading := fmt.Sprintf("  %d copies of %s, wasting %s",
			len(g.Members), humanize.IBytes(uint64(g.Size)), humanize.IBytes(uint64(g.WastedBytes())))
		sb.WriteString(ValueStyle.Render(heading))
		sb.WriteString("\n")

		for _, member := range g.Members {
			if member == g.Keeper {
				sb.WriteString(KeeperStyle.Render("    keep  " + member))
			} else {
				sb.WriteString(MutedStyle.Render("          " + member))
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// formatFooter builds the footer box with summary information.
func (f *PrettyFormatter) formatFooter(r *Report) string {
	var parts []string

	suggestionsLabel := LabelStyle.Render("Suggestions:")
	suggestionsValue := ValueStyle.Render(fmt.Sprintf("%d", len(r.Classifications)))
	parts = append(parts, fmt.Sprintf("%s %s", suggestionsLabel, suggestionsValue))

	groupsLabel := LabelStyle.Render("Duplicate groups:")
	groupsValue := ValueStyle.Render(fmt.Sprintf("%d", len(r.Groups)))
	parts = append(parts, fmt.Sprintf("%s %s", groupsLabel, groupsValue))

	reclaimableLabel := LabelStyle.Render("Reclaimable:")
	reclaimableValue := SizeStyle.Render(humanize.IBytes(uint64(r.Summary.ReclaimableBytes)))
	parts = append(parts, fmt.Sprintf("%s %s", reclaimableLabel, reclaimableValue))

	hint := MutedStyle.Render("Use -o plain for unformatted output")
	parts = append(parts, hint)

	content := strings.Join(parts, "  ")
	return FooterBox.Render(content)
}

// formatWarnings builds a block listing per-item errors and cycle notes.
func (f *PrettyFormatter) formatWarnings(r *Report) string {
	var sb strings.Builder

	titleStyle := WarningStyle.Bold(true)
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Warnings (%d):", len(r.Summary.Errors)+len(r.Summary.CycleNotes))))
	sb.WriteString("\n")

	for _, ie := range r.Summary.Errors {
		sb.WriteString(WarningStyle.Render("  " + ie.Error()))
		sb.WriteString("\n")
	}
	for _, note := range r.Summary.CycleNotes {
		sb.WriteString(MutedStyle.Render("  symlink cycle skipped: " + note))
		sb.WriteString("\n")
	}

	return sb.String()
}

// shortID trims a session UUID to its first segment for display.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// padLeft pads a string with spaces on the left to achieve the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// padRight pads a string with spaces on the right to achieve the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
