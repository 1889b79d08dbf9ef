// Package record holds the extracted agenda data model: records, their
// dependent sub-records, identity keys, and the merge/dedupe rules applied
// when the same item is observed across extraction passes.
package record

import (
	"regexp"
	"sort"
	"strings"
)

var spacePat = regexp.MustCompile(`\s+`)

// Normalize collapses runs of whitespace and trims the result. It is the
// canonical form used for identity keys and progress logging.
func Normalize(s string) string {
	return spacePat.ReplaceAllString(strings.TrimSpace(s), " ")
}

// Record is one agenda item pulled out of the widget.
type Record struct {
	Title    string
	Time     string
	Location string
	Tags     []string
	URL      string
}

// Key is the identity used for merging and checkpoint resume: normalized
// lowercase title plus normalized lowercase time interval. Two same-titled
// items in the same interval collapse into one record even if their rooms
// differ; the locations backfill-merge instead.
func (r Record) Key() string {
	return strings.ToLower(Normalize(r.Title)) + "\x00" + strings.ToLower(Normalize(r.Time))
}

// Empty reports whether every identifying field is blank. Empty records
// are discarded, never emitted.
func (r Record) Empty() bool {
	return r.Title == "" && r.Time == "" && r.Location == "" && r.URL == ""
}

// Merge folds other into r: empty fields are backfilled from other,
// non-empty fields are kept, and tags become the sorted union.
func (r *Record) Merge(other Record) {
	if r.Title == "" {
		r.Title = other.Title
	}
	if r.Time == "" {
		r.Time = other.Time
	}
	if r.Location == "" {
		r.Location = other.Location
	}
	if r.URL == "" {
		r.URL = other.URL
	}
	if len(other.Tags) > 0 {
		r.Tags = unionTags(r.Tags, other.Tags)
	}
}

func unionTags(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, t := range a {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, t := range b {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// AddTag appends t if it is not already present, preserving first-seen
// order within a single extraction.
func (r *Record) AddTag(t string) {
	for _, have := range r.Tags {
		if have == t {
			return
		}
	}
	r.Tags = append(r.Tags, t)
}

// SubRecord is a nested item found on a record's detail page. It carries
// its parent's fields so the flat sink stays self-describing.
type SubRecord struct {
	ParentTitle    string
	ParentTime     string
	ParentLocation string
	ParentTags     string
	ParentURL      string
	Title          string
	Time           string
	Location       string
	URL            string
}

// Key identifies a sub-record within its parent.
func (s SubRecord) Key() string {
	return s.ParentURL + "\x00" + strings.ToLower(Normalize(s.Title)) + "\x00" + strings.ToLower(Normalize(s.Time))
}

// Empty reports whether the sub-record carries no data of its own.
func (s SubRecord) Empty() bool {
	return s.Title == "" && s.Time == "" && s.Location == "" && s.URL == ""
}
