package scrape

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

// fakeFrame scripts the widget's rendering progress: counts[i] is the
// item count seen by poll i and texts[i] the body text, with the last
// value of each repeating.
type fakeFrame struct {
	counts    []int
	texts     []string
	text      string
	polls     int
	textCalls int
	scrolls   int
}

func (f *fakeFrame) CountNodes(string) (int, error) {
	i := f.polls
	if i >= len(f.counts) {
		i = len(f.counts) - 1
	}
	f.polls++
	return f.counts[i], nil
}

func (f *fakeFrame) BodyText() (string, error) {
	if len(f.texts) == 0 {
		return f.text, nil
	}
	i := f.textCalls
	if i >= len(f.texts) {
		i = len(f.texts) - 1
	}
	f.textCalls++
	return f.texts[i], nil
}

func (f *fakeFrame) ScrollToBottom() error {
	f.scrolls++
	return nil
}

func testGate(minItems, stagnationRounds int, timeout time.Duration) *Gate {
	g := NewGate(minItems, timeout, 10*time.Millisecond, stagnationRounds, log.New(io.Discard))
	clock := time.Unix(0, 0)
	g.now = func() time.Time { return clock }
	g.sleep = func(d time.Duration) { clock = clock.Add(d) }
	return g
}

func TestGateSatisfiedOnceThresholdReached(t *testing.T) {
	g := testGate(10, 5, time.Second)
	f := &fakeFrame{counts: []int{0, 2, 6, 12}}

	res := g.Wait(f)
	assert.Equal(t, GateSatisfied, res.State)
	assert.Equal(t, 12, res.Count)
	assert.Equal(t, 4, f.polls)
}

func TestGateStagnationDoesNotEndTheWait(t *testing.T) {
	g := testGate(10, 3, time.Minute)
	f := &fakeFrame{counts: []int{4, 4, 4, 4, 4, 4, 4, 4, 12}}

	res := g.Wait(f)
	assert.Equal(t, GateSatisfied, res.State,
		"a count that stalls and then moves again must still satisfy within the window")
	assert.Equal(t, 12, res.Count)
	assert.True(t, res.Stagnant, "the stall is still reported as a signal")
	assert.Equal(t, 9, f.polls)
}

func TestGateExhaustedReportsStagnation(t *testing.T) {
	g := testGate(10, 3, 100*time.Millisecond)
	f := &fakeFrame{counts: []int{4}}

	res := g.Wait(f)
	assert.Equal(t, GateExhausted, res.State, "only the window closing ends an unsatisfied wait")
	assert.Equal(t, 4, res.Count)
	assert.True(t, res.Stagnant)
	assert.GreaterOrEqual(t, f.polls, 9, "polling continues for the whole window despite the stall")
}

func TestGateExhaustedKeepsBestCount(t *testing.T) {
	g := testGate(10, 100, 50*time.Millisecond)
	f := &fakeFrame{counts: []int{1, 3, 2}}

	res := g.Wait(f)
	assert.Equal(t, GateExhausted, res.State)
	assert.Equal(t, 3, res.Count, "the best observed count survives a later drop")
	assert.False(t, res.Stagnant)
}

func TestGatePlaceholderIsNotStagnation(t *testing.T) {
	g := testGate(5, 2, 200*time.Millisecond)
	f := &fakeFrame{
		counts: []int{0, 0, 0, 0, 0, 0, 5},
		text:   "Loading agenda... powered by Whova",
	}

	res := g.Wait(f)
	assert.Equal(t, GateExhausted, res.State,
		"counts observed under the loading shell are ignored, and the shell never lifts here")
	assert.False(t, res.Stagnant,
		"the loading shell must not trip the stagnation signal")
}

func TestGatePlaceholderSuppressesCount(t *testing.T) {
	g := testGate(5, 10, time.Second)
	f := &fakeFrame{
		counts: []int{50},
		texts: []string{
			"Loading agenda... powered by Whova",
			"Loading agenda... powered by Whova",
			"Keynote Talk 9:00 AM - 10:30 AM",
		},
	}

	res := g.Wait(f)
	assert.Equal(t, GateSatisfied, res.State)
	assert.Equal(t, 3, f.polls,
		"stray matches inside the loading shell must not satisfy the threshold")
}

func TestGateScrollsPeriodically(t *testing.T) {
	g := testGate(100, 100, 120*time.Millisecond)
	f := &fakeFrame{counts: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}

	g.Wait(f)
	assert.Greater(t, f.scrolls, 0, "lazy rendering must be provoked during the wait")
}
