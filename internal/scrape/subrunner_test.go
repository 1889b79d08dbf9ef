package scrape

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/agendarake/internal/config"
	"github.com/go-scripts/agendarake/internal/record"
	"github.com/go-scripts/agendarake/internal/rotate"
	"github.com/go-scripts/agendarake/internal/writer"
)

func subRunnerFor(t *testing.T, cfg config.Config) *SubRunner {
	t.Helper()
	return NewSubRunner(cfg, rotate.New(nil, nil, 0), NewMetrics(), log.New(io.Discard))
}

func writeParents(t *testing.T, recs []record.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, writer.WriteRecords(path, recs))
	return path
}

func TestTargetsFiltersToDetailPages(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.InputPath = writeParents(t, []record.Record{
		{Title: "Keynote", URL: "https://whova.com/embedded/session/kdd_2025/101"},
		{Title: "Sponsor page", URL: "https://example.com/sponsors"},
		{Title: "No link at all"},
	})

	r := subRunnerFor(t, cfg)
	targets, err := r.Targets()
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "Keynote", targets[0].Title)
}

func TestTargetsEmptyHintTakesAllLinked(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SessionURLHint = ""
	cfg.InputPath = writeParents(t, []record.Record{
		{Title: "A", URL: "https://example.com/a"},
		{Title: "B"},
	})

	r := subRunnerFor(t, cfg)
	targets, err := r.Targets()
	require.NoError(t, err)
	assert.Len(t, targets, 1, "records without a link can never be visited")
}

func TestTargetsLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SessionURLHint = ""
	cfg.Limit = 2
	cfg.InputPath = writeParents(t, []record.Record{
		{Title: "A", URL: "https://example.com/a"},
		{Title: "B", URL: "https://example.com/b"},
		{Title: "C", URL: "https://example.com/c"},
	})

	r := subRunnerFor(t, cfg)
	targets, err := r.Targets()
	require.NoError(t, err)
	assert.Len(t, targets, 2)
}

func TestTargetsMissingLinkColumn(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.InputPath = filepath.Join(t.TempDir(), "nope.csv")

	r := subRunnerFor(t, cfg)
	_, err := r.Targets()
	assert.Error(t, err, "a dependent run without readable input is unrecoverable")
}

func TestURLShape(t *testing.T) {
	assert.Equal(t, "https://whova.com/embedded", urlShape("https://whova.com/embedded/session/101"))
	assert.Equal(t, "https://example.com/a", urlShape("https://example.com/a"))
	assert.Equal(t, "https://example.com", urlShape("https://example.com"))
}
