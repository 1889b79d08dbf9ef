package writer

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/agendarake/internal/record"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestPartialPath(t *testing.T) {
	assert.Equal(t, "out/events.partial.csv", PartialPath("out/events.csv"))
	assert.Equal(t, "events.partial.csv", PartialPath("events.csv"))
}

func TestWriteRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.csv")
	recs := []record.Record{
		{Title: "Keynote, opening", Time: "9:00 AM - 10:30 AM", Location: "Hall A",
			Tags: []string{"keynote", "ml"}, URL: "https://example.com/k"},
		{Title: "Panel", Time: "2:00 PM - 3:00 PM"},
	}

	require.NoError(t, WriteRecords(path, recs))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, RecordHeader, rows[0])
	assert.Equal(t, []string{"Keynote, opening", "9:00 AM - 10:30 AM", "Hall A", "keynote;ml", "https://example.com/k"}, rows[1])
	assert.Equal(t, []string{"Panel", "2:00 PM - 3:00 PM", "", "", ""}, rows[2])
}

func TestWriteRecordsOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, WriteRecords(path, []record.Record{
		{Title: "A"}, {Title: "B"}, {Title: "C"},
	}))
	require.NoError(t, WriteRecords(path, []record.Record{{Title: "A"}}))

	rows := readCSV(t, path)
	assert.Len(t, rows, 2, "each write replaces the whole file")
}

func TestWriteSubRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.csv")
	subs := []record.SubRecord{{
		ParentTitle: "Keynote", ParentTime: "9:00 AM - 10:30 AM",
		ParentURL: "https://example.com/k",
		Title:     "Q&A", Time: "10:00 AM - 10:30 AM", Location: "Hall A",
		URL: "https://example.com/k/qa",
	}}

	require.NoError(t, WriteSubRecords(path, subs))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, SubRecordHeader, rows[0])
	assert.Equal(t, []string{
		"Keynote", "9:00 AM - 10:30 AM", "", "", "https://example.com/k",
		"Q&A", "10:00 AM - 10:30 AM", "Hall A", "https://example.com/k/qa",
	}, rows[1])
}

func TestWriteEmptyStillWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, WriteRecords(path, nil))
	rows := readCSV(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, RecordHeader, rows[0])
}
