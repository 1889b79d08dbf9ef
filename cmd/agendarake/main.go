// Command agendarake extracts agenda records from a dynamically rendered,
// iframe-embedded agenda widget into flat CSV files. The events
// subcommand scrapes the listing; the subsessions subcommand follows each
// record's detail page for its nested entries.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/go-scripts/agendarake/internal/config"
	"github.com/go-scripts/agendarake/internal/rotate"
	"github.com/go-scripts/agendarake/internal/scrape"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *log.Logger) *cobra.Command {
	cfg := config.DefaultConfig()

	root := &cobra.Command{
		Use:           "agendarake",
		Short:         "Extract agenda records from an embedded agenda widget",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cfg.Verbose {
				logger.SetLevel(log.DebugLevel)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&cfg.OutPath, "out", "o", cfg.OutPath, "output CSV path")
	pf.IntVar(&cfg.MinItems, "min-items", cfg.MinItems, "item count at which the widget counts as rendered")
	pf.DurationVar(&cfg.WaitTimeout, "wait-timeout", cfg.WaitTimeout, "bound on one readiness wait")
	pf.DurationVar(&cfg.OpTimeout, "op-timeout", cfg.OpTimeout, "bound on a single browser action")
	pf.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "spacing between readiness probes")
	pf.IntVar(&cfg.StagnationRounds, "stagnation-rounds", cfg.StagnationRounds, "unchanged probes before a reload escalation")
	pf.IntVar(&cfg.ReloadTries, "reload-tries", cfg.ReloadTries, "reload escalations before giving up on readiness")
	pf.DurationVar(&cfg.OverallTimeout, "timeout", cfg.OverallTimeout, "bound on the whole run")
	pf.Float64Var(&cfg.MaxRPS, "max-rps", cfg.MaxRPS, "cap on automation actions per second (0 disables)")
	pf.DurationVar(&cfg.JitterMax, "jitter", cfg.JitterMax, "upper bound of the random pause added per action")
	pf.IntVar(&cfg.RotateEvery, "rotate-every", cfg.RotateEvery, "rebuild the browser identity after this many items (0 disables)")
	pf.IntVar(&cfg.CheckpointEvery, "checkpoint-every", cfg.CheckpointEvery, "flush the partial file after this many new records")
	pf.StringVar(&cfg.UserAgentsFile, "ua-file", cfg.UserAgentsFile, "user agent pool, one per line")
	pf.StringVar(&cfg.ProxiesFile, "proxy-file", cfg.ProxiesFile, "proxy pool, one per line")
	pf.StringVar(&cfg.FrameHint, "frame-hint", cfg.FrameHint, "URL substring that identifies the embed frame")
	pf.StringVar(&cfg.DebugDir, "debug-dir", cfg.DebugDir, "directory for screenshots and HTML dumps")
	pf.BoolVar(&cfg.Headful, "headful", cfg.Headful, "show the browser window")
	pf.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable debug logging")
	pf.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")

	root.AddCommand(newEventsCmd(&cfg, logger))
	root.AddCommand(newSubsessionsCmd(&cfg, logger))
	return root
}

func newEventsCmd(cfg *config.Config, logger *log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events <url>",
		Short: "Scrape the agenda listing into a records CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.TargetURL = args[0]
			if err := cfg.Validate(); err != nil {
				return err
			}

			rot, metrics, err := setup(cfg, logger)
			if err != nil {
				return err
			}

			runner := scrape.NewRunner(*cfg, rot, metrics, logger)
			_, err = runner.Run(signalContext(logger))
			return err
		},
	}
	return cmd
}

func newSubsessionsCmd(cfg *config.Config, logger *log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subsessions",
		Short: "Follow each record's detail page for its nested entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.InputPath == "" {
				return fmt.Errorf("an input records file is required (--input)")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			rot, metrics, err := setup(cfg, logger)
			if err != nil {
				return err
			}
			runner := scrape.NewSubRunner(*cfg, rot, metrics, logger)

			if cfg.ListTargets {
				targets, err := runner.Targets()
				if err != nil {
					return err
				}
				for i, tgt := range targets {
					logger.Info("target", "n", i+1, "title", tgt.Title, "url", tgt.URL)
				}
				logger.Info("dry run done", "targets", len(targets))
				return nil
			}

			_, err = runner.Run(signalContext(logger))
			return err
		},
	}
	cmd.Flags().StringVarP(&cfg.InputPath, "input", "i", cfg.InputPath, "finished records CSV to read targets from")
	cmd.Flags().StringVar(&cfg.SessionURLHint, "session-url-hint", cfg.SessionURLHint, "substring a link must contain to count as a detail page")
	cmd.Flags().BoolVar(&cfg.ListTargets, "list-targets", cfg.ListTargets, "print the targets and exit")
	cmd.Flags().IntVar(&cfg.Limit, "limit", cfg.Limit, "stop after this many detail pages (0 means all)")
	return cmd
}

// setup builds the pieces both subcommands share: identity pools, the
// rotator, and the metrics bundle with its optional listener.
func setup(cfg *config.Config, logger *log.Logger) (*rotate.Rotator, *scrape.Metrics, error) {
	uas, err := config.LoadLines(cfg.UserAgentsFile)
	if err != nil {
		return nil, nil, err
	}
	proxies, err := config.LoadLines(cfg.ProxiesFile)
	if err != nil {
		return nil, nil, err
	}
	rot := rotate.New(uas, proxies, cfg.RotateEvery)

	metrics := scrape.NewMetrics()
	if cfg.MetricsAddr != "" {
		go func() {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
				logger.Warn("metrics listener stopped", "err", err)
			}
		}()
	}
	return rot, metrics, nil
}

// signalContext cancels the run on SIGINT/SIGTERM so a checkpoint gets
// flushed before exit.
func signalContext(logger *log.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		logger.Warn("signal received, shutting down", "signal", s)
		cancel()
	}()
	return ctx
}
