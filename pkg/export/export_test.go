package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		Title:   "Hostel summary",
		Fields:  []Field{{Label: "Total revenue", Value: "850000"}},
		Headers: []string{"room", "occupants", "capacity"},
		Rows:    [][]string{{"A-101", "1", "2"}, {"A-102"}},
	}
}

func TestCSVRendererWritesFieldsAndTable(t *testing.T) {
	out, err := NewCSVRenderer().Render(sampleReport())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Total revenue,850000", lines[0])
	assert.Equal(t, "room,occupants,capacity", lines[2])
	assert.Equal(t, "A-102,,", lines[4])
}

func TestRenderersRequireHeaders(t *testing.T) {
	_, err := NewCSVRenderer().Render(Report{})
	assert.Error(t, err)
	_, err = NewPDFRenderer().Render(Report{})
	assert.Error(t, err)
}

func TestPDFRendererProducesDocument(t *testing.T) {
	out, err := NewPDFRenderer().Render(sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
