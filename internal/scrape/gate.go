// Package scrape orchestrates a run: readiness gating, the extraction
// loop with pacing, rotation and checkpointing, and the dependent-record
// pass over detail pages.
package scrape

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// gateFrame is the slice of frame behavior the readiness gate needs; the
// narrow interface keeps the state machine testable without a browser.
type gateFrame interface {
	CountNodes(sel string) (int, error)
	BodyText() (string, error)
	ScrollToBottom() error
}

// GateState is the outcome of one readiness wait. Only satisfaction or
// the window closing ends a wait; a stalled count is reported as a
// signal, never as an exit.
type GateState int

const (
	// GateSatisfied: the item count reached the threshold.
	GateSatisfied GateState = iota
	// GateExhausted: the wait window closed without satisfaction.
	GateExhausted
)

func (s GateState) String() string {
	if s == GateSatisfied {
		return "satisfied"
	}
	return "exhausted"
}

// GateResult carries the final state and the best item count observed, so
// an exhausted wait can still hand a partial widget to extraction.
// Stagnant records that the count stopped changing below the threshold at
// some point during the wait.
type GateResult struct {
	State    GateState
	Count    int
	Stagnant bool
}

// placeholderMarkers identify the widget's loading shell: both must be
// present in the body text for it to count as "still booting".
var placeholderMarkers = []string{"loading", "whova"}

// scrollEveryPolls is how often the gate provokes lazy rendering.
const scrollEveryPolls = 3

// Gate watches one frame until the widget has rendered enough items or
// the wait is up.
type Gate struct {
	MinItems         int
	Timeout          time.Duration
	PollInterval     time.Duration
	StagnationRounds int
	CardSelector     string
	Logger           *log.Logger

	sleep func(time.Duration)
	now   func() time.Time
}

// NewGate builds a gate from the run settings.
func NewGate(minItems int, timeout, poll time.Duration, stagnationRounds int, logger *log.Logger) *Gate {
	return &Gate{
		MinItems:         minItems,
		Timeout:          timeout,
		PollInterval:     poll,
		StagnationRounds: stagnationRounds,
		CardSelector:     cardCountSelector,
		Logger:           logger,
		sleep:            time.Sleep,
		now:              time.Now,
	}
}

// Wait polls f until the item count reaches the threshold or the window
// closes. Counts observed while the loading shell is up are ignored:
// the shell can hold stray matches and its slow boot is not stagnation.
// A count that stops changing below the threshold only sets the
// Stagnant signal; the wait itself runs its full window. Probe errors
// count as zero items; the gate itself never fails.
func (g *Gate) Wait(f gateFrame) GateResult {
	deadline := g.now().Add(g.Timeout)
	best := 0
	lastCount := -1
	unchanged := 0
	stagnant := false

	for poll := 0; ; poll++ {
		n, err := f.CountNodes(g.CardSelector)
		if err != nil {
			g.Logger.Debug("readiness probe failed", "err", err)
			n = 0
		}

		if g.isPlaceholder(f) {
			unchanged = 0
			lastCount = -1
		} else {
			if n > best {
				best = n
			}
			if n >= g.MinItems {
				g.Logger.Debug("readiness satisfied", "items", n)
				return GateResult{State: GateSatisfied, Count: n, Stagnant: stagnant}
			}
			if n == lastCount {
				unchanged++
				if unchanged == g.StagnationRounds {
					stagnant = true
					g.Logger.Debug("rendering stagnated", "items", n, "rounds", unchanged)
				}
			} else {
				unchanged = 0
			}
			lastCount = n
		}

		if poll%scrollEveryPolls == scrollEveryPolls-1 {
			if err := f.ScrollToBottom(); err != nil {
				g.Logger.Debug("scroll provocation failed", "err", err)
			}
		}

		if g.now().Add(g.PollInterval).After(deadline) {
			g.Logger.Debug("readiness window closed", "best", best)
			return GateResult{State: GateExhausted, Count: best, Stagnant: stagnant}
		}
		g.sleep(g.PollInterval)
	}
}

func (g *Gate) isPlaceholder(f gateFrame) bool {
	text, err := f.BodyText()
	if err != nil {
		return false
	}
	lower := strings.ToLower(text)
	for _, m := range placeholderMarkers {
		if !strings.Contains(lower, m) {
			return false
		}
	}
	return true
}
