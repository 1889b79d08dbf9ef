// Package pace spaces automation actions out in time: a Limiter enforcing
// a minimum inter-action interval with uniform jitter, and a Backoff
// producing an exponential retry schedule that resets on success.
package pace

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Limiter enforces a minimum interval between actions derived from a
// maximum actions-per-second rate, plus a uniformly drawn jitter so
// request timing does not look mechanical. Not safe for concurrent use;
// the run loop is single-threaded.
type Limiter struct {
	minInterval time.Duration
	jitterMax   time.Duration
	last        time.Time
	rng         *rand.Rand

	sleep func(time.Duration)
	now   func() time.Time
}

// NewLimiter builds a Limiter for maxRPS actions per second. A zero or
// negative maxRPS disables the minimum interval; jitterMax of zero
// disables jitter.
func NewLimiter(maxRPS float64, jitterMax time.Duration) *Limiter {
	var min time.Duration
	if maxRPS > 0 {
		min = time.Duration(float64(time.Second) / maxRPS)
	}
	return &Limiter{
		minInterval: min,
		jitterMax:   jitterMax,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:       time.Sleep,
		now:         time.Now,
	}
}

// Wait blocks until at least the minimum interval has passed since the
// previous Wait, then adds the jitter draw. The first call never blocks
// on the interval.
func (l *Limiter) Wait() {
	now := l.now()
	if !l.last.IsZero() {
		if since := now.Sub(l.last); since < l.minInterval {
			l.sleep(l.minInterval - since)
		}
	}
	if l.jitterMax > 0 {
		l.sleep(time.Duration(l.rng.Int63n(int64(l.jitterMax))))
	}
	l.last = l.now()
}

// Backoff yields an exponential retry schedule: base, base×factor,
// base×factor², capped, with proportional jitter around each value.
// Reset returns the schedule to the base delay after a success.
type Backoff struct {
	eb *backoff.ExponentialBackOff
}

// NewBackoff builds a schedule starting at base, multiplying by factor,
// capped at max, with ±jitter (a fraction, e.g. 0.2) randomization. Pass
// jitter 0 for a deterministic schedule.
func NewBackoff(base, max time.Duration, factor, jitter float64) *Backoff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = base
	eb.Multiplier = factor
	eb.MaxInterval = max
	eb.RandomizationFactor = jitter
	eb.MaxElapsedTime = 0
	eb.Reset()
	return &Backoff{eb: eb}
}

// Next returns the next delay in the schedule.
func (b *Backoff) Next() time.Duration {
	return b.eb.NextBackOff()
}

// Sleep waits out the next delay or returns early with the context's
// error when it is cancelled.
func (b *Backoff) Sleep(ctx context.Context) error {
	t := time.NewTimer(b.Next())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reset returns the schedule to its base delay.
func (b *Backoff) Reset() {
	b.eb.Reset()
}
