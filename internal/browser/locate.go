package browser

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// probeSelector estimates how many agenda items a document is showing.
// Item containers only, so nested links do not inflate the density score.
const probeSelector = "div.session, [role='listitem']"

// densityThreshold is the minimum probe count for a frame to be chosen
// on density alone.
const densityThreshold = 3

// Locate picks the document to extract from. Frames whose URL contains
// hint win outright; otherwise frames are scored by item density, with
// re-probing until the deadline since embeds often attach late. When
// nothing qualifies the top-level document is returned, so Locate never
// fails — the readiness gate downstream decides whether the choice was
// good enough.
func Locate(s *Session, hint string, deadline time.Duration, logger *log.Logger) *Frame {
	hint = strings.ToLower(hint)
	until := time.Now().Add(deadline)

	for {
		frames, err := s.Frames()
		if err != nil {
			logger.Warn("frame enumeration failed", "err", err)
			frames = nil
		}

		if hint != "" {
			for i, f := range frames {
				if strings.Contains(strings.ToLower(f.URL()), hint) {
					logger.Debug("frame selected by hint", "url", f.URL())
					detachOthers(frames, i)
					return f
				}
			}
		}

		best, bestCount := -1, 0
		for i, f := range frames {
			n, err := f.CountNodes(probeSelector)
			if err != nil {
				logger.Debug("frame probe failed", "url", f.URL(), "err", err)
				continue
			}
			if n > bestCount {
				best, bestCount = i, n
			}
		}
		if best >= 0 && bestCount >= densityThreshold {
			logger.Debug("frame selected by density", "url", frames[best].URL(), "items", bestCount)
			detachOthers(frames, best)
			return frames[best]
		}

		detachOthers(frames, -1)
		if time.Now().After(until) {
			break
		}
		time.Sleep(time.Second)
	}

	logger.Debug("no embed frame qualified, using top-level document")
	return s.Top()
}

func detachOthers(frames []*Frame, keep int) {
	for i, f := range frames {
		if i != keep {
			f.Detach()
		}
	}
}
