// Package config carries the run settings shared by the agenda and
// dependent-record commands.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is populated from CLI flags and validated before a run starts.
type Config struct {
	// TargetURL is the page embedding the agenda widget.
	TargetURL string
	// InputPath is the finished records file a dependent-record run
	// reads its targets from.
	InputPath string
	// OutPath is the final output file; the checkpoint file derives
	// from it.
	OutPath string

	// MinItems is the readiness threshold: the item count at which the
	// widget is considered fully rendered.
	MinItems int
	// WaitTimeout bounds one readiness wait before escalation.
	WaitTimeout time.Duration
	// OpTimeout bounds a single browser action: one navigation, one
	// evaluate, one screenshot. Much shorter than WaitTimeout so a hung
	// action cannot eat a whole wait window.
	OpTimeout time.Duration
	// PollInterval spaces readiness probes.
	PollInterval time.Duration
	// StagnationRounds is how many consecutive unchanged probes signal
	// that rendering has settled below the threshold.
	StagnationRounds int
	// ReloadTries is how many reload escalations are attempted before
	// the wait is declared exhausted.
	ReloadTries int
	// OverallTimeout bounds the whole run.
	OverallTimeout time.Duration

	// MaxRPS caps automation actions per second; zero disables.
	MaxRPS float64
	// JitterMax is the upper bound of the uniform pause added to every
	// rate-limited action.
	JitterMax time.Duration
	// BackoffBase, BackoffMax and BackoffFactor shape the retry
	// schedule for transient failures.
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	BackoffFactor float64

	// RotateEvery rebuilds the rendering session with a fresh identity
	// after this many processed items; zero disables.
	RotateEvery int
	// CheckpointEvery flushes the partial file after this many new
	// records.
	CheckpointEvery int
	// Limit stops a dependent-record run after this many parents;
	// zero means all.
	Limit int

	// UserAgentsFile and ProxiesFile are optional one-entry-per-line
	// pools for identity rotation.
	UserAgentsFile string
	ProxiesFile    string

	// FrameHint selects embed frames by URL substring before density
	// scoring kicks in.
	FrameHint string
	// SessionURLHint filters parent links down to detail pages.
	SessionURLHint string

	// DebugDir receives screenshots and HTML dumps; empty disables.
	DebugDir string
	// Headful shows the browser window.
	Headful bool
	// Verbose enables debug logging.
	Verbose bool
	// ListTargets prints a dependent-record run's targets and exits.
	ListTargets bool
	// MetricsAddr serves Prometheus metrics when non-empty.
	MetricsAddr string
}

// DefaultConfig returns the settings a plain invocation runs with.
func DefaultConfig() Config {
	return Config{
		OutPath:          "out/events.csv",
		MinItems:         8,
		WaitTimeout:      75 * time.Second,
		OpTimeout:        30 * time.Second,
		PollInterval:     1500 * time.Millisecond,
		StagnationRounds: 6,
		ReloadTries:      2,
		OverallTimeout:   20 * time.Minute,
		MaxRPS:           0.5,
		JitterMax:        1500 * time.Millisecond,
		BackoffBase:      2 * time.Second,
		BackoffMax:       60 * time.Second,
		BackoffFactor:    2,
		RotateEvery:      12,
		CheckpointEvery:  5,
		FrameHint:        "whova",
		SessionURLHint:   "/embedded/session/",
	}
}

// Validate rejects settings no run can work with.
func (c Config) Validate() error {
	if c.OutPath == "" {
		return fmt.Errorf("output path is required")
	}
	if c.MinItems < 1 {
		return fmt.Errorf("min items must be positive, got %d", c.MinItems)
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive, got %s", c.WaitTimeout)
	}
	if c.OpTimeout <= 0 {
		return fmt.Errorf("op timeout must be positive, got %s", c.OpTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.ReloadTries < 0 {
		return fmt.Errorf("reload tries must not be negative, got %d", c.ReloadTries)
	}
	if c.MaxRPS < 0 {
		return fmt.Errorf("max rps must not be negative, got %f", c.MaxRPS)
	}
	if c.BackoffFactor < 1 {
		return fmt.Errorf("backoff factor must be at least 1, got %f", c.BackoffFactor)
	}
	if c.CheckpointEvery < 1 {
		return fmt.Errorf("checkpoint interval must be positive, got %d", c.CheckpointEvery)
	}
	return nil
}

// LoadLines reads a one-entry-per-line pool file, skipping blanks and
// `#` comments. An empty path returns an empty pool.
func LoadLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, nil
}
