// Package rotate cycles the browsing identity presented to the target:
// user agent, optional proxy, viewport, and Accept-Language. The rotator
// hands out identities round-robin so a long run spreads evenly across
// the configured pools.
package rotate

import "fmt"

// Identity is one complete presentation the rendering session is built
// with. Proxy is empty when no proxy pool is configured.
type Identity struct {
	UserAgent      string
	Proxy          string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
}

// Viewport is a window size choice.
type Viewport struct {
	Width  int
	Height int
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

var defaultViewports = []Viewport{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
	{1440, 900},
}

var defaultLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.8,fr;q=0.5",
}

// Rotator hands out identities round-robin. The zero pools fall back to
// built-in defaults; an empty proxy pool means direct connections.
type Rotator struct {
	userAgents []string
	proxies    []string
	viewports  []Viewport
	languages  []string
	every      int

	uaCursor    int
	proxyCursor int
	vpCursor    int
	langCursor  int
}

// New builds a Rotator that rotates every `every` processed items. Empty
// userAgents falls back to the built-in pool; proxies may be empty.
func New(userAgents, proxies []string, every int) *Rotator {
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}
	return &Rotator{
		userAgents: userAgents,
		proxies:    proxies,
		viewports:  defaultViewports,
		languages:  defaultLanguages,
		every:      every,
	}
}

// Next returns the next identity and advances every cursor.
func (r *Rotator) Next() Identity {
	id := Identity{
		UserAgent:      r.userAgents[r.uaCursor%len(r.userAgents)],
		ViewportWidth:  r.viewports[r.vpCursor%len(r.viewports)].Width,
		ViewportHeight: r.viewports[r.vpCursor%len(r.viewports)].Height,
		AcceptLanguage: r.languages[r.langCursor%len(r.languages)],
	}
	if len(r.proxies) > 0 {
		id.Proxy = r.proxies[r.proxyCursor%len(r.proxies)]
		r.proxyCursor++
	}
	r.uaCursor++
	r.vpCursor++
	r.langCursor++
	return id
}

// Due reports whether a rotation should happen after `processed` items.
// Rotation is disabled when every is zero or negative, and never fires
// before any work has been done.
func (r *Rotator) Due(processed int) bool {
	return r.every > 0 && processed > 0 && processed%r.every == 0
}

// String describes an identity compactly for log lines.
func (id Identity) String() string {
	proxy := id.Proxy
	if proxy == "" {
		proxy = "direct"
	}
	return fmt.Sprintf("%dx%d via %s, ua %.40s...", id.ViewportWidth, id.ViewportHeight, proxy, id.UserAgent)
}
