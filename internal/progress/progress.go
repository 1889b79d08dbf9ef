// Package progress tracks a run's pace: items done against the total,
// seconds per item, and the remaining-time estimate printed with each
// progress line.
package progress

import (
	"time"
)

// Tracker accumulates completions against a known total. Not safe for
// concurrent use; the extraction loop is single-threaded.
type Tracker struct {
	start time.Time
	total int
	done  int

	now func() time.Time
}

// New starts a tracker for total items.
func New(total int) *Tracker {
	t := &Tracker{total: total, now: time.Now}
	t.start = t.now()
	return t
}

// SetTotal adjusts the total when a re-extraction pass changes it.
func (t *Tracker) SetTotal(total int) {
	t.total = total
}

// Done returns how many items have completed.
func (t *Tracker) Done() int { return t.done }

// Step records one completed item and returns the updated pace: items
// done, the rolling per-item duration, and the estimated time remaining.
func (t *Tracker) Step() (done int, perItem, eta time.Duration) {
	t.done++
	elapsed := t.now().Sub(t.start)
	perItem = elapsed / time.Duration(t.done)
	remaining := t.total - t.done
	if remaining < 0 {
		remaining = 0
	}
	return t.done, perItem.Round(100 * time.Millisecond), (perItem * time.Duration(remaining)).Round(time.Second)
}
