package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-scripts/agendarake/internal/record"
)

// cardWrapperSelector is the broad fallback used when no dedicated
// session container exists in the markup.
const cardWrapperSelector = "[role='listitem'], article, section, li, div.event, div.card"

// timeSelectors are sub-elements that carry an item's time interval when
// the markup is well-formed; the whole-card regex is the fallback.
const timeSelectors = ".time-col, .session-sub-time, .session-time, .time"

// locationSelectors mirror timeSelectors for the location field.
const locationSelectors = "div.session-location, .session-location, .location"

// Cards runs the structured-markup strategy: parse html, select the item
// containers, and extract one record per container. Relative links are
// resolved against baseURL. Containers yielding no identifying field are
// dropped. A parse failure is reported so the caller can fall back to the
// plain-text strategy.
func Cards(html, baseURL string) ([]record.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	cards := doc.Find("div.session")
	if cards.Length() == 0 {
		cards = doc.Find(cardWrapperSelector).FilterFunction(looksLikeCard)
	}

	var out []record.Record
	cards.Each(func(_ int, card *goquery.Selection) {
		if r, ok := extractCard(card, baseURL); ok {
			out = append(out, r)
		}
	})
	return out, nil
}

// looksLikeCard keeps only generic wrappers that plausibly hold one agenda
// item: a link plus at least one recognizable field.
func looksLikeCard(_ int, s *goquery.Selection) bool {
	if s.Find("a[href]").Length() == 0 {
		return false
	}
	text := record.Normalize(s.Text())
	if TimePat.MatchString(text) || LocPat.MatchString(text) {
		return true
	}
	return s.Find("h1, h2, h3, strong").Length() > 0
}

func extractCard(card *goquery.Selection, baseURL string) (record.Record, bool) {
	var r record.Record
	flat := record.Normalize(card.Text())

	for _, sel := range titleSelectors {
		if t := record.Normalize(card.Find(sel).First().Text()); t != "" {
			r.Title = t
			break
		}
	}
	if r.Title == "" {
		r.Title = longestLine(card.Text())
	}

	if tc := card.Find(timeSelectors).First(); tc.Length() > 0 {
		t := record.Normalize(tc.Text())
		if m := TimePat.FindString(t); m != "" {
			r.Time = m
		} else {
			r.Time = t
		}
	}
	if r.Time == "" {
		r.Time = TimePat.FindString(flat)
	}

	if lc := card.Find(locationSelectors).First(); lc.Length() > 0 {
		r.Location = record.Normalize(lc.Text())
	}
	if r.Location == "" {
		if m := LocPat.FindStringSubmatch(flat); m != nil {
			r.Location = truncateLocation(record.Normalize(m[1]))
		}
	}

	collectTags(card, &r)
	r.URL = cardURL(card, baseURL)

	if r.Empty() {
		return record.Record{}, false
	}
	if r.Title != "" {
		r.Title = CleanTitle(r.Title)
		if r.Title == "" {
			// The raw title was nothing but the time interval; the
			// container is noise, not an item.
			return record.Record{}, false
		}
	}
	return r, true
}

func collectTags(card *goquery.Selection, r *record.Record) {
	for _, hint := range tagClassHints {
		card.Find("[class*='" + hint + "']").Each(func(_ int, el *goquery.Selection) {
			if len(r.Tags) >= maxTagsPerCard {
				return
			}
			t := record.Normalize(el.Text())
			if len(t) < minTagLen || len(t) > maxTagLen {
				return
			}
			if tagExcludePat.MatchString(t) || TimePat.MatchString(t) {
				return
			}
			r.AddTag(t)
		})
	}
}

// cardURL prefers an explicit detail link ("view more") over the first
// link in the container, and only accepts absolute resolutions.
func cardURL(card *goquery.Selection, baseURL string) string {
	var href string
	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, _ := a.Attr("href")
		if href == "" {
			href = h
		}
		if strings.Contains(strings.ToLower(record.Normalize(a.Text())), "view more") {
			href = h
			return false
		}
		return true
	})
	return absURL(baseURL, href)
}

// longestLine is the last-resort title heuristic: the longest text line of
// at least eight characters that is not a field label.
func longestLine(text string) string {
	var best string
	for _, line := range strings.Split(text, "\n") {
		line = record.Normalize(line)
		if len(line) < 8 || hasLabelPrefix(line) {
			continue
		}
		if len(line) > len(best) {
			best = line
		}
	}
	return best
}
