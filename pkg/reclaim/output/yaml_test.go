package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &YAMLFormatter{}
	require.NoError(t, f.Format(&buf, sampleReport()))

	var decoded yamlReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "finished", decoded.Summary.Reason)
	assert.Equal(t, int64(1200), decoded.Summary.TotalFiles)
	assert.Equal(t, int64(300*types.MiB), decoded.Summary.Reclaimable)

	require.Len(t, decoded.Classifications, 2)
	assert.Equal(t, "temp", decoded.Classifications[1].Category)
	assert.Equal(t, "/home/user/tmp/build.tmp", decoded.Classifications[1].Path)

	require.Len(t, decoded.DuplicateGroups, 1)
	assert.Equal(t, "/data/backup/music/song.flac", decoded.DuplicateGroups[0].Keeper)
	assert.Equal(t, int64(24*types.MiB), decoded.DuplicateGroups[0].Wasted)
}

func TestYAMLFormatterStructure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "summary:")
	assert.Contains(t, out, "classifications:")
	assert.Contains(t, out, "duplicate_groups:")
	assert.Contains(t, out, "session_id:")
}
