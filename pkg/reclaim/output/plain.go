package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// PlainFormatter formats output as simple tab-aligned text.
// It produces plain output suitable for scripting and piping.
// No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := tw.Write([]byte("CATEGORY\tACTION\tSIZE\tPATH\n")); err != nil {
		return err
	}

	for _, row := range r.Rows() {
		line := fmt.Sprintf("%s\t%s\t%s\t%s\n", row.Category, row.Action, types.FormatSize(row.Size), row.Path)
		if _, err := tw.Write([]byte(line)); err != nil {
			return err
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	s := r.Summary
	fmt.Fprintf(w, "\n%d files, %d dirs, %s scanned in %s; reclaimable %s (%s)\n",
		s.TotalFiles, s.TotalDirs, types.FormatSize(s.TotalBytes),
		s.Duration.Round(durationRounding), types.FormatSize(s.ReclaimableBytes), s.Reason)
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
