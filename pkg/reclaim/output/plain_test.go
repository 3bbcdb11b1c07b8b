package output

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

func TestPlainFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "dev-artifact")
	assert.Contains(t, out, "/home/user/project/node_modules")
	assert.Contains(t, out, "/data/a/song.flac")
	assert.NotContains(t, out, "\x1b[", "plain output must carry no ANSI styling")
	assert.Contains(t, out, "1200 files, 85 dirs")
}

func TestTSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TSVFormatter{}).Format(&buf, sampleReport()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4, "header plus three rows")
	assert.Equal(t, "CATEGORY\tACTION\tSIZE\tPATH", lines[0])

	fields := strings.Split(lines[1], "\t")
	require.Len(t, fields, 4)
	assert.Equal(t, "dev-artifact", fields[0])
	assert.Equal(t, "delete", fields[1])
	assert.Equal(t, "/home/user/project/node_modules", fields[3])
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CSVFormatter{}).Format(&buf, sampleReport()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"CATEGORY", "ACTION", "SIZE", "PATH", "DETAIL"}, records[0])
	assert.Equal(t, "duplicate", records[3][0])
	assert.Equal(t, "/data/a/song.flac", records[3][3])
}

func TestCSVFormatterQuotesCommas(t *testing.T) {
	r := &Report{
		Classifications: []types.Classification{
			{Path: "/data/old, archived.zip", Category: types.CategoryArchive, Action: types.ActionRelocate, Size: 10},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, (&CSVFormatter{}).Format(&buf, r))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "/data/old, archived.zip", records[1][3])
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownFormatter{}).Format(&buf, sampleReport()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "| CATEGORY | ACTION | SIZE | PATH |", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "|---"))
	assert.Contains(t, lines[2], "| dev-artifact |")
}

func TestMarkdownFormatterEscapesPipes(t *testing.T) {
	r := &Report{
		Classifications: []types.Classification{
			{Path: "/odd|name.tmp", Category: types.CategoryTemp, Action: types.ActionDelete, Size: 1},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, (&MarkdownFormatter{}).Format(&buf, r))
	assert.Contains(t, buf.String(), `/odd\|name.tmp`)
}

func TestPathsFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PathsFormatter{}).Format(&buf, sampleReport()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"/home/user/project/node_modules",
		"/home/user/tmp/build.tmp",
		"/data/a/song.flac",
	}, lines)
	assert.NotContains(t, lines, "/data/backup/music/song.flac",
		"keepers are retained, not suggested")
}

func TestNullFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&NullFormatter{}).Format(&buf, sampleReport()))

	parts := strings.Split(strings.TrimRight(buf.String(), "\x00"), "\x00")
	require.Len(t, parts, 3)
	assert.Equal(t, "/home/user/project/node_modules", parts[0])
}

func TestTemplateFormatterDefault(t *testing.T) {
	f, err := Get("template")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleReport()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "dev-artifact")
	assert.Contains(t, lines[0], "250 MiB")
}

func TestTemplateFormatterCustom(t *testing.T) {
	f := NewTemplateFormatter(`{{len .Rows}} suggestions, {{bytes .Summary.ReclaimableBytes}} reclaimable`)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleReport()))
	assert.Equal(t, "3 suggestions, 300 MiB reclaimable", buf.String())
}

func TestTemplateFormatterInvalid(t *testing.T) {
	f := NewTemplateFormatter("{{.Broken")

	var buf bytes.Buffer
	assert.Error(t, f.Format(&buf, sampleReport()))
}

func TestTemplateFormatterSetTemplate(t *testing.T) {
	f := NewTemplateFormatter("first")

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleReport()))
	assert.Equal(t, "first", buf.String())

	f.SetTemplate("second")
	buf.Reset()
	require.NoError(t, f.Format(&buf, sampleReport()))
	assert.Equal(t, "second", buf.String())
}
