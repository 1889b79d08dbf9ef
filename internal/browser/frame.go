package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Frame evaluates in one document: either the top-level tab or an
// attached embed frame target.
type Frame struct {
	ctx     context.Context
	cancel  context.CancelFunc
	url     string
	timeout time.Duration
}

// Detach releases an attached embed frame target. Harmless on the
// top-level handle.
func (f *Frame) Detach() {
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *Frame) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(f.ctx, f.timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// URL returns the document's current address.
func (f *Frame) URL() string {
	var u string
	if err := f.run(chromedp.Evaluate(`location.href`, &u)); err != nil {
		return f.url
	}
	return u
}

// CountNodes returns how many elements match sel in this document.
func (f *Frame) CountNodes(sel string) (int, error) {
	var n int
	js := fmt.Sprintf(`document.querySelectorAll(%q).length`, sel)
	if err := f.run(chromedp.Evaluate(js, &n)); err != nil {
		return 0, fmt.Errorf("failed to count %q: %w", sel, err)
	}
	return n, nil
}

// BodyText returns the document's visible text.
func (f *Frame) BodyText() (string, error) {
	var text string
	js := `document.body ? document.body.innerText : ""`
	if err := f.run(chromedp.Evaluate(js, &text)); err != nil {
		return "", fmt.Errorf("failed to read body text: %w", err)
	}
	return text, nil
}

// HTML returns the document's serialized markup.
func (f *Frame) HTML() (string, error) {
	var html string
	js := `document.documentElement ? document.documentElement.outerHTML : ""`
	if err := f.run(chromedp.Evaluate(js, &html)); err != nil {
		return "", fmt.Errorf("failed to read html: %w", err)
	}
	return html, nil
}

// ScrollToBottom provokes lazy rendering by scrolling the document to its
// full height.
func (f *Frame) ScrollToBottom() error {
	js := `window.scrollTo(0, document.body ? document.body.scrollHeight : 0)`
	if err := f.run(chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

// clickItemJS builds the expression that locates the container matching
// title by its whitespace-collapsed visible text and clicks the detail
// control inside it, falling back to the container itself. It evaluates
// to whether a container was found.
func clickItemJS(containerSel, title, clickSel string) string {
	return fmt.Sprintf(`(() => {
		const norm = s => s.replace(/\s+/g, ' ').trim();
		const want = norm(%q);
		const card = Array.from(document.querySelectorAll(%q))
			.find(el => norm(el.textContent).includes(want));
		if (!card) return false;
		const target = card.querySelector(%q) || card;
		target.click();
		return true;
	})()`, title, containerSel, clickSel)
}

// CaptureClickURL finds the item container whose visible text contains
// title, clicks the detail control inside that container, waits for the
// document address to change, records it, and navigates back. It returns
// the captured address, or empty when the click led nowhere within the
// wait window. Matching by text rather than position keeps the click on
// the intended item even when extraction indices and DOM order diverge.
func (f *Frame) CaptureClickURL(containerSel, title, clickSel string) (string, error) {
	before := f.URL()

	var clicked bool
	if err := f.run(chromedp.Evaluate(clickItemJS(containerSel, title, clickSel), &clicked)); err != nil {
		return "", fmt.Errorf("failed to click item %q: %w", title, err)
	}
	if !clicked {
		return "", fmt.Errorf("no container matching %q for %q", title, containerSel)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(250 * time.Millisecond)
		if after := f.URL(); after != before && after != "" {
			// Return to the listing before the next item.
			if err := f.run(chromedp.Evaluate(`history.back()`, nil)); err != nil {
				return after, fmt.Errorf("failed to navigate back: %w", err)
			}
			time.Sleep(500 * time.Millisecond)
			return after, nil
		}
	}
	return "", nil
}
