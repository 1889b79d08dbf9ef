package scrape

import (
	"context"
	"fmt"
	"strings"

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

// subMinItems is the readiness threshold on a detail page: one rendered
// entry is enough to start parsing.
const subMinItems = 1

// SubRunner visits each finished record's detail page and extracts the
// nested entries into a dependent-records file. Parents already present
// in the partial file are skipped on resume and their rows carried
// forward.
type SubRunner struct {
	cfg     config.Config
	rotator *rotate.Rotator
	limiter *pace.Limiter
	backoff *pace.Backoff
	gate    *Gate
	metrics *Metrics
	logger  *log.Logger
}

// NewSubRunner wires a dependent-record runner from validated settings.
func NewSubRunner(cfg config.Config, rot *rotate.Rotator, m *Metrics, logger *log.Logger) *SubRunner {
	return &SubRunner{
		cfg:     cfg,
		rotator: rot,
		limiter: pace.NewLimiter(cfg.MaxRPS, cfg.JitterMax),
		backoff: pace.NewBackoff(cfg.BackoffBase, cfg.BackoffMax, cfg.BackoffFactor, 0.2),
		gate:    NewGate(subMinItems, cfg.WaitTimeout, cfg.PollInterval, cfg.StagnationRounds, logger),
		metrics: m,
		logger:  logger,
	}
}

// Targets loads the parent records and filters them down to the ones
// whose link looks like a detail page. When nothing matches, the
// distinct link shapes are logged so a wrong filter is easy to spot.
func (r *SubRunner) Targets() ([]record.Record, error) {
	parents, err := checkpoint.LoadParents(r.cfg.InputPath)
	if err != nil {
		return nil, err
	}

	hint := strings.ToLower(r.cfg.SessionURLHint)
	var targets []record.Record
	for _, p := range parents {
		if p.URL == "" {
			continue
		}
		if hint == "" || strings.Contains(strings.ToLower(p.URL), hint) {
			targets = append(targets, p)
		}
	}

	if len(targets) == 0 && len(parents) > 0 {
		shapes := make(map[string]struct{})
		for _, p := range parents {
			if p.URL != "" {
				shapes[urlShape(p.URL)] = struct{}{}
			}
		}
		for shape := range shapes {
			r.logger.Warn("no targets matched the link filter", "filter", hint, "seen", shape)
		}
	}

	if r.cfg.Limit > 0 && len(targets) > r.cfg.Limit {
		targets = targets[:r.cfg.Limit]
	}
	return targets, nil
}

// urlShape reduces a link to scheme://host/first-path-segment for the
// zero-match hint log.
func urlShape(u string) string {
	rest := u
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) >= 2 {
		return u[:len(u)-len(rest)] + parts[0] + "/" + parts[1]
	}
	return u
}

// Run visits every target detail page and writes the dependent-records
// file. It returns how many rows were written.
func (r *SubRunner) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.OverallTimeout)
	defer cancel()

	targets, err := r.Targets()
	if err != nil {
		return 0, err
	}

	partial := writer.PartialPath(r.cfg.OutPath)
	subs, doneParents, err := checkpoint.LoadSubRecords(partial)
	if err != nil {
		return 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if len(doneParents) > 0 {
		r.logger.Info("resuming from checkpoint", "file", partial, "parents_done", len(doneParents))
	}

	session, err := r.openSession(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { session.Close() }()

	processed := 0
	sinceCheckpoint := 0
	tracker := progress.New(len(targets))

	for _, parent := range targets {
		if ctx.Err() != nil {
			r.logger.Warn("run cancelled, flushing what we have", "err", ctx.Err())
			break
		}
		if _, ok := doneParents[parent.URL]; ok {
			r.metrics.ItemsSkipped.Inc()
			continue
		}

		items := r.visit(ctx, session, parent)
		for _, it := range items {
			subs = append(subs, record.SubRecord{
				ParentTitle:    parent.Title,
				ParentTime:     parent.Time,
				ParentLocation: parent.Location,
				ParentTags:     strings.Join(parent.Tags, writer.TagSeparator),
				ParentURL:      parent.URL,
				Title:          it.Title,
				Time:           it.Time,
				Location:       it.Location,
				URL:            it.URL,
			})
			r.metrics.ItemsExtracted.Inc()
		}

		doneParents[parent.URL] = struct{}{}
		processed++
		sinceCheckpoint++

		done, perItem, eta := tracker.Step()
		r.logger.Info("parent processed",
			"n", done, "total", len(targets),
			"title", record.Normalize(parent.Title), "subs", len(items),
			"per_item", perItem, "eta", eta)

		if sinceCheckpoint >= r.cfg.CheckpointEvery {
			r.flushSubs(partial, subs)
			sinceCheckpoint = 0
		}

		if r.rotator.Due(processed) {
			session.Close()
			r.metrics.Rotations.Inc()
			if session, err = r.openSession(ctx); err != nil {
				r.flushSubs(partial, subs)
				return 0, err
			}
		}
	}

	r.flushSubs(partial, subs)
	if err := writer.WriteSubRecords(r.cfg.OutPath, subs); err != nil {
		return 0, fmt.Errorf("failed to write output: %w", err)
	}
	if len(subs) == 0 {
		r.logger.Warn("run completed with zero rows", "out", r.cfg.OutPath)
	} else {
		r.logger.Info("run completed", "out", r.cfg.OutPath, "rows", len(subs))
	}
	return len(subs), nil
}

// visit opens one detail page and parses its nested entries. Failures
// degrade to an empty result; the parent is still marked done so a
// broken page cannot wedge a resumed run.
func (r *SubRunner) visit(ctx context.Context, session *browser.Session, parent record.Record) []extract.SubItem {
	r.limiter.Wait()
	if err := r.navigate(ctx, session, parent.URL); err != nil {
		r.logger.Warn("detail page unreachable", "url", parent.URL, "err", err)
		return nil
	}

	frame := session.Top()
	res := r.gate.Wait(frame)
	if res.State != GateSatisfied {
		r.logger.Debug("detail page readiness", "url", parent.URL, "state", res.State.String())
	}

	html, err := frame.HTML()
	if err != nil {
		r.logger.Warn("html capture failed", "url", parent.URL, "err", err)
		return nil
	}
	items, err := extract.SubItems(html, parent.URL)
	if err != nil {
		r.logger.Warn("detail parse failed", "url", parent.URL, "err", err)
		return nil
	}
	if len(items) == 0 {
		r.logger.Warn("no nested entries found", "url", parent.URL)
		dumpDebug(r.cfg.DebugDir, "no_subs", session, frame, r.logger)
	}
	return items
}

func (r *SubRunner) openSession(ctx context.Context) (*browser.Session, error) {
	id := r.rotator.Next()
	r.logger.Info("opening session", "identity", id.String())
	session, err := browser.NewSession(ctx, id, r.cfg.Headful, r.cfg.OpTimeout, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return session, nil
}

func (r *SubRunner) navigate(ctx context.Context, session *browser.Session, url string) error {
	var err error
	for attempt := 1; attempt <= navRetries; attempt++ {
		if err = session.Navigate(url); err == nil {
			r.backoff.Reset()
			return nil
		}
		r.logger.Warn("navigation failed", "url", url, "attempt", attempt, "err", err)
		if attempt < navRetries {
			if serr := r.backoff.Sleep(ctx); serr != nil {
				return serr
			}
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", navRetries, err)
}

func (r *SubRunner) flushSubs(partial string, subs []record.SubRecord) {
	if err := writer.WriteSubRecords(partial, subs); err != nil {
		r.logger.Error("checkpoint write failed", "file", partial, "err", err)
		return
	}
	r.metrics.Checkpoints.Inc()
	r.logger.Info("checkpoint written", "file", partial, "rows", len(subs))
}
