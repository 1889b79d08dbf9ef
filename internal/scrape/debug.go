package scrape

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/agendarake/internal/browser"
)

// dumpDebug writes a timestamped screenshot and the frame's HTML under
// dir, so a silent zero-item run leaves something to look at. Failures
// are logged and swallowed; debugging must never break the run.
func dumpDebug(dir, label string, s *browser.Session, f *browser.Frame, logger *log.Logger) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("debug dir not writable", "dir", dir, "err", err)
		return
	}
	stamp := time.Now().Format("20060102_150405")
	base := filepath.Join(dir, fmt.Sprintf("%s_%s", stamp, label))

	if png, err := s.Screenshot(); err != nil {
		logger.Debug("debug screenshot failed", "err", err)
	} else if err := os.WriteFile(base+".png", png, 0o644); err != nil {
		logger.Debug("debug screenshot not written", "err", err)
	}

	if html, err := f.HTML(); err != nil {
		logger.Debug("debug html capture failed", "err", err)
	} else if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil {
		logger.Debug("debug html not written", "err", err)
	}

	logger.Info("debug artifacts written", "prefix", base)
}
