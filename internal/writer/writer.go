// Package writer owns the flat delimited sink. Files are always written
// whole: a checkpoint overwrites the partial file with every record
// collected so far, so a crash leaves a consistent snapshot rather than a
// torn tail.
package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-scripts/agendarake/internal/record"
)

// RecordHeader is the fixed column set for agenda records.
var RecordHeader = []string{"title", "time", "location", "tags", "url"}

// SubRecordHeader is the fixed column set for dependent records; parent
// fields come first so each row is self-describing.
var SubRecordHeader = []string{
	"parent_title", "parent_time", "parent_location", "parent_tags", "parent_url",
	"title", "time", "location", "url",
}

// TagSeparator joins a record's tags into one cell.
const TagSeparator = ";"

// PartialPath derives the checkpoint file path from the final output
// path: out/events.csv -> out/events.partial.csv.
func PartialPath(out string) string {
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + ".partial" + ext
}

// WriteRecords overwrites path with a header plus one row per record.
func WriteRecords(path string, recs []record.Record) error {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			r.Title, r.Time, r.Location, strings.Join(r.Tags, TagSeparator), r.URL,
		})
	}
	return writeCSV(path, RecordHeader, rows)
}

// WriteSubRecords overwrites path with a header plus one row per
// sub-record.
func WriteSubRecords(path string, subs []record.SubRecord) error {
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, []string{
			s.ParentTitle, s.ParentTime, s.ParentLocation, s.ParentTags, s.ParentURL,
			s.Title, s.Time, s.Location, s.URL,
		})
	}
	return writeCSV(path, SubRecordHeader, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows to %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Close()
}
