package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderAppendsTotalsRow(t *testing.T) {
	data := Dataset{
		Headers: []string{"Item", "Revenue"},
		Rows: []map[string]string{
			{"Item": "Soap", "Revenue": "12.00"},
			{"Item": "Candy", "Revenue": "4.50"},
		},
		Totals: map[string]string{"Item": "TOTAL", "Revenue": "16.50"},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	lines := strings.Split(strings.TrimSpace(string(out[len(utf8BOM):])), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Item,Revenue", lines[0])
	assert.Equal(t, "TOTAL,16.50", lines[3])
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFRenderProducesDocument(t *testing.T) {
	data := Dataset{
		Headers: []string{"Inmate ID", "Balance"},
		Rows:    []map[string]string{{"Inmate ID": "INM-001", "Balance": "20.00"}},
		Totals:  map[string]string{"Inmate ID": "TOTAL", "Balance": "20.00"},
	}

	out, err := NewPDFExporter().Render(data, "Inmate Balance Report")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
