package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-scripts/agendarake/internal/record"
)

// SubItem is one nested entry found on a detail page, before it is joined
// with its parent record.
type SubItem struct {
	Title    string
	Time     string
	Location string
	URL      string
}

const (
	subListSelector     = ".session-subs-list .session-sub, .session-sub"
	subTitleSelector    = "a.session-sub-title, .session-sub-title a, .session-sub-title"
	subTimeSelector     = ".session-sub-time, .sub-time, .time"
	subLocationSelector = ".session-sub-location, .sub-location, .location"
	subAnchorSelector   = "a[href*='/session/']"
)

// SubItems parses a detail page for its nested entries. Entries with no
// identifying field are dropped and duplicates collapse on the full field
// tuple. Relative links resolve against pageURL.
func SubItems(html, pageURL string) ([]SubItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	containers := subContainers(doc)

	seen := make(map[string]struct{})
	var out []SubItem
	for _, item := range containers {
		si := extractSubItem(item, pageURL)
		if si.Title == "" && si.Time == "" && si.Location == "" && si.URL == "" {
			continue
		}
		key := strings.ToLower(si.Title + "\x00" + si.Time + "\x00" + si.Location + "\x00" + si.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, si)
	}
	return out, nil
}

// subContainers picks one element per nested entry: the dedicated list
// wrappers when present, otherwise the nearest block around each titled or
// session-linked anchor.
func subContainers(doc *goquery.Document) []*goquery.Selection {
	var out []*goquery.Selection
	if items := doc.Find(subListSelector); items.Length() > 0 {
		items.Each(func(_ int, s *goquery.Selection) { out = append(out, s) })
		return out
	}
	anchors := doc.Find(subTitleSelector)
	if anchors.Length() == 0 {
		anchors = doc.Find(subAnchorSelector)
	}
	anchors.Each(func(_ int, a *goquery.Selection) {
		item := a.Closest("li, div")
		if item.Length() == 0 {
			item = a
		}
		out = append(out, item)
	})
	return out
}

func extractSubItem(item *goquery.Selection, pageURL string) SubItem {
	var si SubItem

	a := item.Find(subTitleSelector).First()
	if a.Length() == 0 {
		a = item.Find(subAnchorSelector).First()
	}
	if a.Length() == 0 && item.Is(subTitleSelector+", "+subAnchorSelector) {
		a = item
	}
	if a.Length() > 0 {
		si.Title = CleanTitle(a.Text())
		if href, ok := a.Attr("href"); ok {
			si.URL = absURL(pageURL, href)
		} else if inner := a.Find("a[href]").First(); inner.Length() > 0 {
			href, _ := inner.Attr("href")
			si.URL = absURL(pageURL, href)
		}
	}
	if si.Title == "" {
		si.Title = longestLine(item.Text())
	}

	if tc := item.Find(subTimeSelector).First(); tc.Length() > 0 {
		t := record.Normalize(tc.Text())
		if m := TimePat.FindString(t); m != "" {
			si.Time = m
		} else {
			si.Time = t
		}
	}
	if si.Time == "" {
		si.Time = TimePat.FindString(record.Normalize(item.Text()))
	}

	if lc := item.Find(subLocationSelector).First(); lc.Length() > 0 {
		si.Location = record.Normalize(lc.Text())
	} else if m := LocPat.FindStringSubmatch(record.Normalize(item.Text())); m != nil {
		si.Location = truncateLocation(record.Normalize(m[1]))
	}
	return si
}
