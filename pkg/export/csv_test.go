package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRendererRender(t *testing.T) {
	renderer := NewCSVRenderer()
	data, err := renderer.Render(Table{
		Columns: []string{"Date", "Start", "Subject"},
		Rows: [][]string{
			{"2026-03-09", "10:00", "Algorithms"},
			{"2026-03-10", "08:00", "Databases, advanced"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Date,Start,Subject\n2026-03-09,10:00,Algorithms\n2026-03-10,08:00,\"Databases, advanced\"\n", string(data))
}

func TestCSVRendererRejectsRaggedRow(t *testing.T) {
	renderer := NewCSVRenderer()
	_, err := renderer.Render(Table{
		Columns: []string{"Date", "Start"},
		Rows:    [][]string{{"2026-03-09"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 2")
}

func TestCSVRendererRequiresColumns(t *testing.T) {
	renderer := NewCSVRenderer()
	_, err := renderer.Render(Table{})
	require.Error(t, err)
}

func TestPDFRendererProducesDocument(t *testing.T) {
	renderer := NewPDFRenderer()
	data, err := renderer.Render(Table{
		Columns: []string{"Date", "Start", "Subject"},
		Rows:    [][]string{{"2026-03-09", "10:00", "Algorithms"}},
	}, "Weekly Timetable")
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.Equal(t, "%PDF", string(data[:4]))
}
