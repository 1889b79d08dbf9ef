package pace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterEnforcesMinimumInterval(t *testing.T) {
	l := NewLimiter(100, 0) // 10ms floor, no jitter
	clock := time.Unix(0, 0)
	var slept time.Duration
	l.now = func() time.Time { return clock }
	l.sleep = func(d time.Duration) {
		slept += d
		clock = clock.Add(d)
	}

	const n = 5
	for i := 0; i < n; i++ {
		l.Wait()
		clock = clock.Add(2 * time.Millisecond) // the action itself
	}

	// With zero jitter, n actions take at least (n-1) full intervals.
	assert.GreaterOrEqual(t, slept, time.Duration(n-1)*8*time.Millisecond)
}

func TestLimiterFirstCallDoesNotBlock(t *testing.T) {
	l := NewLimiter(0.1, 0) // 10s floor would be obvious
	var slept time.Duration
	l.sleep = func(d time.Duration) { slept += d }

	l.Wait()
	assert.Zero(t, slept)
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(0, 0)
	var slept time.Duration
	l.sleep = func(d time.Duration) { slept += d }

	for i := 0; i < 3; i++ {
		l.Wait()
	}
	assert.Zero(t, slept)
}

func TestBackoffGrowsToCap(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 800*time.Millisecond, 2, 0)

	var got []time.Duration
	for i := 0; i < 5; i++ {
		got = append(got, b.Next())
	}

	require.Len(t, got, 5)
	assert.Equal(t, 100*time.Millisecond, got[0])
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1], "delays never shrink before a reset")
		assert.LessOrEqual(t, got[i], 800*time.Millisecond)
	}
	assert.Equal(t, 800*time.Millisecond, got[4], "schedule reaches and holds the cap")
}

func TestBackoffResetReturnsToBase(t *testing.T) {
	b := NewBackoff(50*time.Millisecond, time.Second, 3, 0)
	b.Next()
	b.Next()
	b.Reset()
	assert.Equal(t, 50*time.Millisecond, b.Next())
}

func TestBackoffJitterStaysInBand(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, time.Minute, 2, 0.2)
	d := b.Next()
	assert.GreaterOrEqual(t, d, 80*time.Millisecond)
	assert.LessOrEqual(t, d, 120*time.Millisecond)
}
