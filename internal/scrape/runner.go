package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/agendarake/internal/browser"
	"github.com/go-scripts/agendarake/internal/checkpoint"
	"github.com/go-scripts/agendarake/internal/config"
	"github.com/go-scripts/agendarake/internal/extract"
	"github.com/go-scripts/agendarake/internal/pace"
	"github.com/go-scripts/agendarake/internal/progress"
	"github.com/go-scripts/agendarake/internal/record"
	"github.com/go-scripts/agendarake/internal/rotate"
	"github.com/go-scripts/agendarake/internal/writer"
)

// cardCountSelector counts rendered agenda items inside the widget
// frame. Containers only: matching the session links nested inside them
// would tally every item twice.
const cardCountSelector = "div.session, [role='listitem']"

// clickTargetSelector is the detail control clicked inside a card when
// its markup carries no link.
const clickTargetSelector = "span.session-subs, a[href]"

// locateDeadline bounds one frame-selection pass; embeds that have not
// attached by then are handled by the gate and reload escalation.
const locateDeadline = 15 * time.Second

// navRetries is how many times a navigation is attempted before the run
// gives up on the page.
const navRetries = 3

// Runner drives one agenda run end to end: session lifecycle, frame
// location, readiness gating with reload escalation, the extraction loop
// with pacing, rotation and checkpointing, and the final write.
type Runner struct {
	cfg     config.Config
	rotator *rotate.Rotator
	limiter *pace.Limiter
	backoff *pace.Backoff
	gate    *Gate
	metrics *Metrics
	logger  *log.Logger
}

// NewRunner wires a runner from validated settings.
func NewRunner(cfg config.Config, rot *rotate.Rotator, m *Metrics, logger *log.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		rotator: rot,
		limiter: pace.NewLimiter(cfg.MaxRPS, cfg.JitterMax),
		backoff: pace.NewBackoff(cfg.BackoffBase, cfg.BackoffMax, cfg.BackoffFactor, 0.2),
		gate:    NewGate(cfg.MinItems, cfg.WaitTimeout, cfg.PollInterval, cfg.StagnationRounds, logger),
		metrics: m,
		logger:  logger,
	}
}

// Run scrapes the configured page and writes the final records file. It
// returns how many records were written. A page that never renders is not
// an error: the run completes with zero records and a warning.
func (r *Runner) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.OverallTimeout)
	defer cancel()

	partial := writer.PartialPath(r.cfg.OutPath)
	doneKeys, err := checkpoint.LoadKeys(partial)
	if err != nil {
		return 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	set := record.NewSet()
	if len(doneKeys) > 0 {
		prior, err := checkpoint.LoadRecords(partial)
		if err != nil {
			return 0, fmt.Errorf("failed to load checkpoint rows: %w", err)
		}
		set.AddAll(prior)
		r.logger.Info("resuming from checkpoint", "file", partial, "records", len(prior))
	}

	session, err := r.openSession(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { session.Close() }()

	frame, err := r.openTarget(ctx, session)
	if err != nil {
		return 0, err
	}

	processed := 0
	sinceCheckpoint := 0
	tracker := progress.New(0)

	for {
		merged := r.extractOnce(frame)
		if len(merged) == 0 {
			break
		}
		tracker.SetTotal(len(merged))

		rotated := false
		for _, rec := range merged {
			if ctx.Err() != nil {
				r.logger.Warn("run cancelled, flushing what we have", "err", ctx.Err())
				r.flush(partial, set)
				return r.finish(set)
			}
			if _, ok := doneKeys[rec.Key()]; ok {
				r.metrics.ItemsSkipped.Inc()
				continue
			}

			r.limiter.Wait()
			if rec.URL == "" {
				rec.URL = r.captureURL(frame, rec.Title)
			}

			set.Add(rec)
			doneKeys[rec.Key()] = struct{}{}
			processed++
			sinceCheckpoint++
			r.metrics.ItemsExtracted.Inc()

			done, perItem, eta := tracker.Step()
			r.logger.Info("extracted",
				"n", done, "total", len(merged),
				"title", record.Normalize(rec.Title),
				"per_item", perItem, "eta", eta)

			if sinceCheckpoint >= r.cfg.CheckpointEvery {
				r.flush(partial, set)
				sinceCheckpoint = 0
			}

			if r.rotator.Due(processed) {
				session.Close()
				r.metrics.Rotations.Inc()
				session, err = r.openSession(ctx)
				if err != nil {
					r.flush(partial, set)
					return 0, err
				}
				frame, err = r.openTarget(ctx, session)
				if err != nil {
					r.flush(partial, set)
					return 0, err
				}
				rotated = true
				break
			}
		}
		if !rotated {
			break
		}
		// A fresh session re-renders the widget; re-extract and keep
		// going over whatever is not in the done set yet.
	}

	r.flush(partial, set)
	return r.finish(set)
}

// openSession builds a browser with the next identity.
func (r *Runner) openSession(ctx context.Context) (*browser.Session, error) {
	id := r.rotator.Next()
	r.logger.Info("opening session", "identity", id.String())
	session, err := browser.NewSession(ctx, id, r.cfg.Headful, r.cfg.OpTimeout, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return session, nil
}

// openTarget navigates to the page, finds the widget frame and waits for
// readiness, escalating with reloads and finally the direct-open
// fallback. An exhausted wait still returns the frame: partial widgets
// are extracted, not discarded.
func (r *Runner) openTarget(ctx context.Context, session *browser.Session) (*browser.Frame, error) {
	if err := r.navigate(ctx, session, r.cfg.TargetURL); err != nil {
		return nil, err
	}

	var frame *browser.Frame
	res := r.escalate(ctx,
		func() GateResult {
			frame = browser.Locate(session, r.cfg.FrameHint, locateDeadline, r.logger)
			return r.waitReady(frame)
		},
		session.Reload,
	)

	if res.State != GateSatisfied {
		if src, err := session.IframeSrc(r.cfg.FrameHint); err == nil && src != "" {
			r.logger.Info("opening embed directly", "url", src)
			if err := r.navigate(ctx, session, src); err == nil {
				frame = session.Top()
				res = r.waitReady(frame)
			}
		}
	}

	if res.State != GateSatisfied {
		r.logger.Warn("proceeding with partial widget", "state", res.State.String(), "items", res.Count)
		dumpDebug(r.cfg.DebugDir, "not_ready", session, frame, r.logger)
	}
	return frame, nil
}

// escalate runs the readiness wait and retries it with reloads. A wait
// that saw zero items burned its whole window on an empty widget, so the
// next reload is preceded by a backoff sleep on top of the usual pacing;
// a satisfied wait resets the backoff.
func (r *Runner) escalate(ctx context.Context, wait func() GateResult, reload func() error) GateResult {
	res := wait()
	for try := 0; try < r.cfg.ReloadTries && res.State != GateSatisfied; try++ {
		r.logger.Warn("widget not ready, reloading",
			"state", res.State.String(), "items", res.Count, "stagnant", res.Stagnant, "try", try+1)
		r.metrics.Reloads.Inc()
		if res.Count == 0 {
			if err := r.backoff.Sleep(ctx); err != nil {
				return res
			}
		}
		r.limiter.Wait()
		if err := reload(); err != nil {
			r.logger.Warn("reload failed", "err", err)
		}
		res = wait()
	}
	if res.State == GateSatisfied {
		r.backoff.Reset()
	}
	return res
}

func (r *Runner) navigate(ctx context.Context, session *browser.Session, url string) error {
	var err error
	for attempt := 1; attempt <= navRetries; attempt++ {
		r.limiter.Wait()
		if err = session.Navigate(url); err == nil {
			r.backoff.Reset()
			return nil
		}
		r.logger.Warn("navigation failed", "url", url, "attempt", attempt, "err", err)
		if attempt < navRetries {
			if serr := r.backoff.Sleep(ctx); serr != nil {
				return fmt.Errorf("failed to open %s: %w", url, serr)
			}
		}
	}
	return fmt.Errorf("failed to open %s after %d attempts: %w", url, navRetries, err)
}

// waitReady runs the readiness gate behind a spinner and records the
// outcome.
func (r *Runner) waitReady(frame *browser.Frame) GateResult {
	sp := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	sp.Suffix = " waiting for agenda items..."
	sp.Start()
	defer sp.Stop()

	begin := time.Now()
	res := r.gate.Wait(frame)
	r.metrics.WaitSeconds.Observe(time.Since(begin).Seconds())
	r.metrics.GateWaits.WithLabelValues(res.State.String()).Inc()
	return res
}

// extractOnce runs both strategies over the frame and merges them: the
// structured pass seeds, the plain-text pass backfills.
func (r *Runner) extractOnce(frame *browser.Frame) []record.Record {
	base := frame.URL()

	var structured []record.Record
	html, err := frame.HTML()
	if err != nil {
		r.logger.Warn("html capture failed", "frame", base, "err", err)
	} else if structured, err = extract.Cards(html, base); err != nil {
		r.logger.Warn("markup parse failed", "frame", base, "err", err)
	}

	var plain []record.Record
	if text, err := frame.BodyText(); err != nil {
		r.logger.Warn("body text capture failed", "frame", base, "err", err)
	} else {
		plain = extract.Lines(text)
	}

	merged := extract.MergePasses(structured, plain)
	r.logger.Debug("extraction pass", "frame", base, "structured", len(structured), "plain", len(plain), "merged", len(merged))
	return merged
}

// captureURL is the click fallback for items whose markup carries no
// link: click the detail control inside the card holding title, record
// where it went, come back.
func (r *Runner) captureURL(frame *browser.Frame, title string) string {
	u, err := frame.CaptureClickURL(cardCountSelector, record.Normalize(title), clickTargetSelector)
	if err != nil {
		r.logger.Debug("click capture failed", "title", title, "err", err)
		return ""
	}
	return u
}

func (r *Runner) flush(partial string, set *record.Set) {
	if err := writer.WriteRecords(partial, set.Records()); err != nil {
		r.logger.Error("checkpoint write failed", "file", partial, "err", err)
		return
	}
	r.metrics.Checkpoints.Inc()
	r.logger.Info("checkpoint written", "file", partial, "records", set.Len())
}

// finish dedupes, writes the final file, and reports the count.
func (r *Runner) finish(set *record.Set) (int, error) {
	recs := record.Dedupe(set.Records())
	if err := writer.WriteRecords(r.cfg.OutPath, recs); err != nil {
		return 0, fmt.Errorf("failed to write output: %w", err)
	}
	if len(recs) == 0 {
		r.logger.Warn("run completed with zero records", "out", r.cfg.OutPath)
	} else {
		r.logger.Info("run completed", "out", r.cfg.OutPath, "records", len(recs))
	}
	return len(recs), nil
}
