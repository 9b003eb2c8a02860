package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Day", "Period", "Teacher"},
		Rows: []map[string]string{
			{"Day": "Monday", "Period": "1", "Teacher": "Ms. Anitha"},
			{"Day": "Monday", "Period": "2"},
		},
		Marked: []bool{true},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Day,Period,Teacher\nMonday,1,Ms. Anitha\nMonday,2,\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := sampleDataset()
	for i := 0; i < 60; i++ {
		data.Rows = append(data.Rows, map[string]string{"Day": "Friday", "Period": "6", "Teacher": "Mr. Harish"})
	}
	out, err := NewPDFExporter().Render(data, "Weekly Timetable")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}
