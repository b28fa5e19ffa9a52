package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/alphaspike/internal/adapters/notify"
	"github.com/alejandrodnm/alphaspike/internal/application/cache"
	"github.com/alejandrodnm/alphaspike/internal/application/scanner"
	"github.com/alejandrodnm/alphaspike/internal/domain"
)

type scanOptions struct {
	endDate  string
	features string
	workers  int
	noCache  bool
}

func newScanCmd(root *rootOptions) *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan every symbol for feature signals on a date",
		Long: `Evaluate the selected feature detectors over every symbol's history up
to --end-date. Results are served from the cache when present and always
persisted after a computed scan.

Examples:
  alphaspike scan --end-date 20240105
  alphaspike scan --end-date 20240105 --feature bbc,weak_to_strong --no-cache`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return runScan(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.endDate, "end-date", "", "scan date (YYYYMMDD)")
	f.StringVar(&opts.features, "feature", "", "comma-separated features to scan (default: all)")
	f.IntVar(&opts.workers, "workers", scanner.DefaultWorkers, "number of parallel workers")
	f.BoolVar(&opts.noCache, "no-cache", false, "ignore cached results and force a rescan")
	_ = cmd.MarkFlagRequired("end-date")
	return cmd
}

func (o *scanOptions) validate() error {
	if !domain.ValidDate(o.endDate) {
		return validationError("--end-date must be in YYYYMMDD format, got %q", o.endDate)
	}
	if o.workers < 1 {
		return validationError("--workers must be >= 1, got %d", o.workers)
	}
	return nil
}

func runScan(cmd *cobra.Command, root *rootOptions, opts *scanOptions) error {
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

	if !cmd.Flags().Changed("workers") {
		opts.workers = a.cfg.Scan.Workers
	}

	detectors := a.features.Select(splitFeatures(opts.features))
	if len(detectors) == 0 {
		return validationError("no valid features selected (available: %v)", a.features.Names())
	}

	universe, err := a.prices.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("load universe: %w: %w", domain.ErrPersistence, err)
	}

	console := notify.NewConsoleWriter(cmd.OutOrStdout(), false)
	redisStatus := "unavailable"
	if a.hot != nil {
		redisStatus = "connected"
	}
	console.Banner("AlphaSpike Feature Scanner",
		"End Date", opts.endDate,
		"Symbols", fmt.Sprintf("%d", len(universe)),
		"Redis", redisStatus,
	)

	loadStart := time.Now()
	preloaded, err := a.prices.BatchLoad(ctx, universe, opts.endDate)
	if err != nil {
		return fmt.Errorf("preload: %w: %w", domain.ErrPersistence, err)
	}
	slog.Info("market data loaded",
		"symbols", len(preloaded),
		"elapsed", notify.FormatDuration(time.Since(loadStart)),
		"workers", opts.workers,
	)

	tiered := cache.New(a.results, a.hotTier(),
		cache.WithTTL(a.cfg.CacheTTL()),
		cache.WithMetrics(a.metrics),
	)
	defer tiered.Wait()

	s := scanner.New(tiered,
		scanner.WithRunRecorder(a.results),
		scanner.WithMetrics(a.metrics),
	)

	bars := make(map[string]*notify.Progress, len(detectors))
	results, err := s.ScanAll(ctx, scanner.ScanAllRequest{
		Detectors: detectors,
		Date:      opts.endDate,
		Universe:  universe,
		Preloaded: preloaded,
		UseCache:  !opts.noCache,
		Workers:   opts.workers,
		Progress: func(name string) scanner.ProgressFunc {
			p := notify.NewProgress(cmd.ErrOrStderr(), name)
			bars[name] = p
			return p.Update
		},
		OnResult: func(r domain.ScanResult) {
			if p := bars[r.Feature]; p != nil {
				if r.FromCache() {
					p.Finish("(cached)")
				} else {
					p.Finish(fmt.Sprintf("done (%d signals)", len(r.Hits)))
				}
			}
		},
	})
	if nerr := console.NotifyScan(ctx, results); nerr != nil {
		slog.Warn("notifier error", "err", nerr)
	}
	if err != nil {
		return err
	}

	console.Done("Scan", time.Since(start))
	return nil
}
