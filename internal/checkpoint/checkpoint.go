// Package checkpoint makes interrupted runs resumable. The partial CSV
// written during a run doubles as the checkpoint: on startup its identity
// keys are loaded into a skip set, and for dependent-record runs its rows
// are carried forward so finished parents are never re-rendered.
package checkpoint

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-scripts/agendarake/internal/record"
	"github.com/go-scripts/agendarake/internal/writer"
)

// urlColumns are the accepted names for the link column of a parent CSV,
// tried in order, case-insensitively.
var urlColumns = []string{"url", "link", "href"}

// LoadKeys reads a partial records file and returns the identity-key set
// of its rows. A missing file is a fresh run: empty set, no error.
func LoadKeys(path string) (map[string]struct{}, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(rows))
	if header == nil {
		return keys, nil
	}
	cols := columnIndex(header)
	titleCol, okTitle := cols["title"]
	timeCol, okTime := cols["time"]
	if !okTitle || !okTime {
		return nil, fmt.Errorf("checkpoint %s has no title/time columns (found %v)", path, header)
	}
	for _, row := range rows {
		r := record.Record{Title: cell(row, titleCol), Time: cell(row, timeCol)}
		keys[r.Key()] = struct{}{}
	}
	return keys, nil
}

// LoadRecords reads a partial records file so a resumed run carries the
// finished rows forward into its own output. A missing file yields nil.
func LoadRecords(path string) ([]record.Record, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, nil
	}
	cols := columnIndex(header)
	recs := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		r := record.Record{
			Title:    cell(row, col(cols, "title")),
			Time:     cell(row, col(cols, "time")),
			Location: cell(row, col(cols, "location")),
			URL:      cell(row, col(cols, "url")),
		}
		if tags := cell(row, col(cols, "tags")); tags != "" {
			r.Tags = strings.Split(tags, writer.TagSeparator)
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// LoadSubRecords reads a partial sub-records file so a resumed run can
// carry the finished rows forward into its own output. The returned set
// holds the parent URLs already processed. A missing file yields empty
// results.
func LoadSubRecords(path string) ([]record.SubRecord, map[string]struct{}, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, nil, err
	}
	done := make(map[string]struct{})
	if header == nil {
		return nil, done, nil
	}
	cols := columnIndex(header)
	var subs []record.SubRecord
	for _, row := range rows {
		s := record.SubRecord{
			ParentTitle:    cell(row, col(cols, "parent_title")),
			ParentTime:     cell(row, col(cols, "parent_time")),
			ParentLocation: cell(row, col(cols, "parent_location")),
			ParentTags:     cell(row, col(cols, "parent_tags")),
			ParentURL:      cell(row, col(cols, "parent_url")),
			Title:          cell(row, col(cols, "title")),
			Time:           cell(row, col(cols, "time")),
			Location:       cell(row, col(cols, "location")),
			URL:            cell(row, col(cols, "url")),
		}
		subs = append(subs, s)
		if s.ParentURL != "" {
			done[s.ParentURL] = struct{}{}
		}
	}
	return subs, done, nil
}

// LoadParents reads a finished records file as input for a dependent-
// record run. The link column is detected among url/link/href; its
// absence is unrecoverable and names the columns that were found.
func LoadParents(path string) ([]record.Record, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("input %s is empty", path)
	}
	cols := columnIndex(header)
	urlCol := -1
	for _, name := range urlColumns {
		if i, ok := cols[name]; ok {
			urlCol = i
			break
		}
	}
	if urlCol < 0 {
		return nil, fmt.Errorf("input %s has no url column (looked for %s; found %v)",
			path, strings.Join(urlColumns, "/"), header)
	}

	parents := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		r := record.Record{
			Title:    cell(row, col(cols, "title")),
			Time:     cell(row, col(cols, "time")),
			Location: cell(row, col(cols, "location")),
			URL:      cell(row, urlCol),
		}
		if tags := cell(row, col(cols, "tags")); tags != "" {
			r.Tags = strings.Split(tags, writer.TagSeparator)
		}
		parents = append(parents, r)
	}
	return parents, nil
}

// readTable returns the lowercased header and the data rows. A missing
// file returns a nil header and no error.
func readTable(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return header, rows, nil
}

// columnIndex maps header names to positions.
func columnIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, name := range header {
		m[name] = i
	}
	return m
}

// col looks a column up, returning a missing index that cell treats as
// absent.
func col(cols map[string]int, name string) int {
	if i, ok := cols[name]; ok {
		return i
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
