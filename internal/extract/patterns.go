// Package extract turns rendered widget markup or raw visible text into
// records. Two strategies are provided and designed to be combined within
// one pass: a structured-markup strategy over a parsed element tree, and a
// plain-text line scanner used when structure is unavailable. Both are
// pure: they never touch the rendering session.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/go-scripts/agendarake/internal/record"
)

// TimePat matches a 12-hour interval like "9:00 AM - 10:30 AM". The
// separator class covers the hyphen, en dash, em dash, and tilde variants
// the widget emits.
var TimePat = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s?(?:am|pm)\s?[-–~—]\s?\d{1,2}:\d{2}\s?(?:am|pm)\b`)

// LocPat matches a labelled location field ("Location: Hall A").
var LocPat = regexp.MustCompile(`(?i)\b(?:Location|Room|Hall|Venue)\s*:\s*(.+)`)

// tagExcludePat rejects chip candidates that are really time or location
// fragments dressed up in a tag-like class.
var tagExcludePat = regexp.MustCompile(`(?i)\b(location|room|hall|venue|time|am|pm)\b`)

// tagClassHints are class-attribute substrings that mark tag/track chips.
var tagClassHints = []string{"tag", "chip", "label", "badge", "category", "pill"}

// titleSelectors is the ordered cascade tried for a card's title: heading
// tags, then attributed links, then emphasized text, then any link. The
// first selector yielding non-empty text wins.
var titleSelectors = []string{
	"h1", "h2", "h3",
	"a[title]",
	"a strong",
	"strong",
	"a",
}

// labelPrefixes disqualify a text line from being a title candidate.
var labelPrefixes = []string{"location:", "room:", "hall:", "venue:", "time:", "session chair:"}

const (
	maxLocationLen = 80
	minTagLen      = 2
	maxTagLen      = 40
	maxTagsPerCard = 20
)

// CleanTitle strips any time-interval substring that leaked into a title
// through mis-segmentation and trims boundary punctuation. An empty result
// means the raw title was nothing but the time pattern; the caller must
// discard the record in that case.
func CleanTitle(title string) string {
	if !TimePat.MatchString(title) {
		return record.Normalize(title)
	}
	cleaned := record.Normalize(TimePat.ReplaceAllString(title, ""))
	return strings.Trim(cleaned, " -–~—")
}

// truncateLocation cuts an over-long captured location at the first comma.
func truncateLocation(loc string) string {
	if len(loc) > maxLocationLen {
		if i := strings.Index(loc, ","); i >= 0 {
			return strings.TrimSpace(loc[:i])
		}
	}
	return loc
}

// absURL resolves href against base and returns it only if the result has
// a scheme; a scheme-less resolution is treated as absent.
func absURL(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := b.ResolveReference(ref)
	if abs.Scheme == "" {
		return ""
	}
	return abs.String()
}

func hasLabelPrefix(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range labelPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
