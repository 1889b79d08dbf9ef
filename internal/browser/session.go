// Package browser wraps the rendering session: a real browser process
// built from one rotation identity, plus frame handles for evaluating in
// the embedded widget's document. All failures surface as errors; callers
// decide what is transient.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/go-scripts/agendarake/internal/rotate"
)

// Session owns one browser process and its top-level tab. A rotation
// tears the whole session down and builds a fresh one with the next
// identity.
type Session struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	identity      rotate.Identity
	actionTimeout time.Duration
	logger        *log.Logger
}

// NewSession launches a browser presenting the given identity. The parent
// context bounds the whole session; cancelling it kills the process.
func NewSession(parent context.Context, id rotate.Identity, headful bool, actionTimeout time.Duration, logger *log.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.UserAgent(id.UserAgent),
		chromedp.WindowSize(id.ViewportWidth, id.ViewportHeight),
		chromedp.Flag("accept-lang", id.AcceptLanguage),
	)
	if headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if id.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(id.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the process now so a broken environment fails the run
	// instead of the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Debug("browser session started", "identity", id.String())
	return &Session{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		identity:      id,
		actionTimeout: actionTimeout,
		logger:        logger,
	}, nil
}

// Identity returns the identity this session presents.
func (s *Session) Identity() rotate.Identity { return s.identity }

// Close tears the browser process down. Safe on a nil session, so a
// deferred close still works when a rotation-time rebuild failed and
// left the handle nil.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.browserCancel()
	s.allocCancel()
}

func (s *Session) run(actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.browserCtx, s.actionTimeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads url in the top-level tab and waits for the document to
// be ready.
func (s *Session) Navigate(url string) error {
	if err := s.run(
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Reload re-fetches the current page, bypassing cache, and waits for
// readiness.
func (s *Session) Reload() error {
	if err := s.run(
		chromedp.Reload(),
		chromedp.WaitReady("body"),
	); err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	return nil
}

// Screenshot captures the full page as PNG bytes.
func (s *Session) Screenshot() ([]byte, error) {
	var buf []byte
	if err := s.run(chromedp.FullScreenshot(&buf, 80)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Top returns a frame handle for the top-level document.
func (s *Session) Top() *Frame {
	return &Frame{ctx: s.browserCtx, timeout: s.actionTimeout}
}

// Frames returns a handle per out-of-process embed frame currently
// attached to the browser, top-level document excluded.
func (s *Session) Frames() ([]*Frame, error) {
	infos, err := chromedp.Targets(s.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list frame targets: %w", err)
	}
	var frames []*Frame
	for _, ti := range infos {
		if ti.Type != "iframe" {
			continue
		}
		frames = append(frames, s.attach(ti))
	}
	return frames, nil
}

func (s *Session) attach(ti *target.Info) *Frame {
	ctx, cancel := chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(ti.TargetID))
	return &Frame{ctx: ctx, cancel: cancel, url: ti.URL, timeout: s.actionTimeout}
}

// IframeSrc returns the src of the first iframe whose URL contains hint,
// or of the first iframe at all when the hint matches nothing. Used for
// the direct-open fallback when the embed never renders in place.
func (s *Session) IframeSrc(hint string) (string, error) {
	js := fmt.Sprintf(`(() => {
		const frames = Array.from(document.querySelectorAll('iframe[src]'));
		const hinted = frames.find(f => f.src.toLowerCase().includes(%q));
		const pick = hinted || frames[0];
		return pick ? pick.src : "";
	})()`, strings.ToLower(hint))

	var src string
	if err := s.run(chromedp.Evaluate(js, &src)); err != nil {
		return "", fmt.Errorf("failed to read iframe src: %w", err)
	}
	return src, nil
}
