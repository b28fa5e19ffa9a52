package main

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/alphaspike/internal/adapters/notify"
	"github.com/alejandrodnm/alphaspike/internal/application/tracker"
	"github.com/alejandrodnm/alphaspike/internal/domain"
	"github.com/alejandrodnm/alphaspike/internal/ports"
)

type trackOptions struct {
	feature   string
	startDate string
	endDate   string
	analyze   bool
}

func newTrackCmd(root *rootOptions) *cobra.Command {
	opts := &trackOptions{}
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Measure how stored scan signals performed afterwards",
		Long: `Read the persisted hit lists and compute the 1d/2d/3d returns of every
signal. With --analyze, classify signals into all-negative, mixed and
all-positive instead.

Examples:
  alphaspike track
  alphaspike track --feature bbc --start-date 20240101 --analyze`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return runTrack(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.feature, "feature", "", "feature to track (default: all stored)")
	f.StringVar(&opts.startDate, "start-date", "", "first scan date to include (YYYYMMDD)")
	f.StringVar(&opts.endDate, "end-date", "", "last scan date to include (YYYYMMDD)")
	f.BoolVar(&opts.analyze, "analyze", false, "classify signals by the sign of their returns")
	return cmd
}

func (o *trackOptions) validate() error {
	for flag, v := range map[string]string{"--start-date": o.startDate, "--end-date": o.endDate} {
		if v != "" && !domain.ValidDate(v) {
			return validationError("%s must be in YYYYMMDD format, got %q", flag, v)
		}
	}
	if o.startDate != "" && o.endDate != "" && o.startDate > o.endDate {
		return validationError("--start-date %s is after --end-date %s", o.startDate, o.endDate)
	}
	return nil
}

func runTrack(cmd *cobra.Command, root *rootOptions, opts *trackOptions) error {
	ctx := cmd.Context()
	start := time.Now()

	a, err := root.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("shutdown", "err", err)
		}
	}()

	stored, err := a.results.FeatureNames(ctx)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return validationError("no stored feature results found, run 'alphaspike scan' first")
	}
	if opts.feature != "" && !slices.Contains(stored, opts.feature) {
		return validationError("no stored results for feature %q (available: %s)",
			opts.feature, strings.Join(stored, ", "))
	}

	target := opts.feature
	if target == "" {
		target = "All Features"
	}
	console := notify.NewConsoleWriter(cmd.OutOrStdout(), false)
	console.Banner("AlphaSpike Feature Tracker",
		"Tracking", target,
		"Periods", "1d, 2d, 3d",
	)

	t := tracker.New(a.results, a.prices)
	filter := ports.ScanFilter{Feature: opts.feature, StartDate: opts.startDate, EndDate: opts.endDate}
	progress := notify.NewProgress(cmd.ErrOrStderr(), "signals")

	if opts.analyze {
		analyses, err := t.Analyze(ctx, filter, progress.Update)
		if err != nil {
			return err
		}
		progress.Finish("done")
		if err := console.NotifyNegative(ctx, analyses); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	} else {
		perfs, err := t.Track(ctx, filter, progress.Update)
		if err != nil {
			return err
		}
		progress.Finish("done")
		if err := console.NotifyPerformance(ctx, perfs); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	console.Done(fmt.Sprintf("Tracking %s", target), time.Since(start))
	return nil
}
