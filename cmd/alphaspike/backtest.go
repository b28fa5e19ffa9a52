package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/alphaspike/internal/adapters/notify"
	"github.com/alejandrodnm/alphaspike/internal/application/backtest"
	"github.com/alejandrodnm/alphaspike/internal/domain"
)

const (
	minBacktestYear = 2000
	maxBacktestYear = 2100
)

type backtestOptions struct {
	feature     string
	year        int
	date        string
	holdingDays int
	workers     int
	trades      bool
}

func newBacktestCmd(root *rootOptions) *cobra.Command {
	opts := &backtestOptions{}
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Backtest a feature over a calendar year",
		Long: `Evaluate a feature on every trading day of --year (or on a single
--date) and simulate a trade for each signal: enter at the next open, exit at
the close after --holding-days.

Examples:
  alphaspike backtest --feature bbc --year 2023
  alphaspike backtest --feature weak_to_strong --date 20240105 --holding-days 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return runBacktest(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.feature, "feature", "", "feature to backtest")
	f.IntVar(&opts.year, "year", 0, "year to backtest (2000..2100)")
	f.StringVar(&opts.date, "date", "", "backtest a single signal date (YYYYMMDD) instead of a year")
	f.IntVar(&opts.holdingDays, "holding-days", backtest.DefaultHoldingDays, "number of holding days")
	f.IntVar(&opts.workers, "workers", backtest.DefaultWorkers, "number of parallel workers")
	f.BoolVar(&opts.trades, "trades", false, "print the simulated trades")
	_ = cmd.MarkFlagRequired("feature")
	cmd.MarkFlagsMutuallyExclusive("year", "date")
	return cmd
}

func (o *backtestOptions) validate() error {
	switch {
	case o.date != "":
		if !domain.ValidDate(o.date) {
			return validationError("--date must be in YYYYMMDD format, got %q", o.date)
		}
	case o.year < minBacktestYear || o.year > maxBacktestYear:
		return validationError("invalid year %d, must be between %d and %d", o.year, minBacktestYear, maxBacktestYear)
	}
	if o.holdingDays < 1 {
		return validationError("--holding-days must be >= 1, got %d", o.holdingDays)
	}
	if o.workers < 1 {
		return validationError("--workers must be >= 1, got %d", o.workers)
	}
	return nil
}

func runBacktest(cmd *cobra.Command, root *rootOptions, opts *backtestOptions) error {
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

	// Los flags explícitos ganan; si no, manda la configuración
	if !cmd.Flags().Changed("holding-days") {
		opts.holdingDays = a.cfg.Backtest.HoldingDays
	}
	if !cmd.Flags().Changed("workers") {
		opts.workers = a.cfg.Backtest.Workers
	}

	det, ok := a.features.Get(opts.feature)
	if !ok {
		return validationError("unknown feature %q (available: %v)", opts.feature, a.features.Names())
	}

	engine := backtest.New(a.prices, backtest.WithMetrics(a.metrics))
	console := notify.NewConsoleWriter(cmd.OutOrStdout(), opts.trades || opts.date != "")

	if opts.date != "" {
		console.Banner("AlphaSpike Backtest",
			"Feature", opts.feature,
			"Date", opts.date,
			"Holding Days", fmt.Sprintf("%d", opts.holdingDays),
		)
		results, err := engine.BacktestDay(ctx, backtest.DayRequest{
			Detector:    det,
			Date:        opts.date,
			HoldingDays: opts.holdingDays,
			Workers:     opts.workers,
		})
		if err != nil {
			return err
		}
		year, _ := strconv.Atoi(opts.date[:4]) // ValidDate garantiza 8 dígitos
		stats := domain.AggregateYear(opts.feature, year, results, 1)
		if err := console.NotifyBacktest(ctx, stats, results); err != nil {
			slog.Warn("notifier error", "err", err)
		}
		console.Done("Backtest", time.Since(start))
		return nil
	}

	console.Banner("AlphaSpike Backtest",
		"Feature", opts.feature,
		"Year", fmt.Sprintf("%d", opts.year),
		"Holding Days", fmt.Sprintf("%d", opts.holdingDays),
	)
	progress := notify.NewProgress(cmd.ErrOrStderr(), "symbols")
	stats, results, err := engine.BacktestYear(ctx, backtest.Request{
		Detector:    det,
		Year:        opts.year,
		HoldingDays: opts.holdingDays,
		Workers:     opts.workers,
		Progress:    progress.Update,
	})
	if err != nil {
		return err
	}
	progress.Finish("done")

	if err := console.NotifyBacktest(ctx, stats, results); err != nil {
		slog.Warn("notifier error", "err", err)
	}
	console.Done("Backtest", time.Since(start))
	return nil
}
