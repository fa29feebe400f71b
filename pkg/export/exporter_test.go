package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Video submissions",
		Headers: []string{"id", "name", "description"},
		Rows: []map[string]string{
			{"id": "v-1", "name": "Launch, part 1", "description": strings.Repeat("long ", 20)},
			{"id": "v-2", "name": "Recap"},
		},
	}
}

func TestCSV(t *testing.T) {
	out, err := CSV(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,name,description", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `v-1,"Launch, part 1",`))
	assert.Equal(t, "v-2,Recap,", lines[2])
}

func TestPDF(t *testing.T) {
	out, err := PDF(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportRequiresHeaders(t *testing.T) {
	_, err := CSV(Dataset{})
	assert.Error(t, err)
	_, err = PDF(Dataset{})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
