package extract

import (
	"strings"

	"github.com/go-scripts/agendarake/internal/record"
)

const (
	minTitleLen   = 8
	maxTitleLen   = 180
	fieldScanSpan = 5
)

// Lines runs the plain-text strategy over the visible body text of a
// frame. A line of plausible title length that is not a field label seeds
// a candidate; the next few lines are scanned for a time interval and a
// location label. The candidate is kept only when at least one field was
// found nearby, which filters prose out. Consumed lines are skipped so one
// block yields one record.
func Lines(text string) []record.Record {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if l := record.Normalize(raw); l != "" {
			lines = append(lines, l)
		}
	}

	var out []record.Record
	for i := 0; i < len(lines); i++ {
		title := lines[i]
		if len(title) < minTitleLen || len(title) > maxTitleLen {
			continue
		}
		if hasLabelPrefix(title) {
			continue
		}

		var r record.Record
		// A title line sometimes carries its own fields ("Keynote Talk
		// 9:00 AM - 10:30 AM Location: Hall A"); lift them before the
		// lookahead and cut the title at the label.
		if loc := LocPat.FindStringSubmatchIndex(title); loc != nil {
			r.Location = truncateLocation(record.Normalize(title[loc[2]:loc[3]]))
			title = title[:loc[0]]
		}
		if m := TimePat.FindString(title); m != "" {
			if CleanTitle(title) == "" {
				continue
			}
			r.Time = m
		}
		end := i + fieldScanSpan
		if end >= len(lines) {
			end = len(lines) - 1
		}
		consumed := i
		for j := i + 1; j <= end; j++ {
			l := lines[j]
			if m := TimePat.FindString(l); m != "" {
				// A line carrying a time plus substantial other text is
				// the next item's combined title line, not a field of
				// this one.
				if len(CleanTitle(l)) >= minTitleLen && !hasLabelPrefix(l) {
					break
				}
				if r.Time == "" {
					r.Time = m
					consumed = j
					continue
				}
			}
			if r.Location == "" {
				if m := LocPat.FindStringSubmatch(l); m != nil {
					r.Location = truncateLocation(record.Normalize(m[1]))
					consumed = j
				}
			}
		}
		if r.Time == "" && r.Location == "" {
			continue
		}

		r.Title = CleanTitle(title)
		if r.Title == "" {
			continue
		}
		out = append(out, r)
		i = consumed
	}
	return out
}

// MergePasses combines the structured and plain-text results of one frame
// into a single merged, first-seen-ordered slice. Structured results go
// first so their richer fields win the seed position.
func MergePasses(structured, plain []record.Record) []record.Record {
	set := record.NewSet()
	set.AddAll(structured)
	set.AddAll(plain)
	return set.Records()
}
