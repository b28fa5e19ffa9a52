package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alejandrodnm/alphaspike/config"
)

// rootOptions son los flags persistentes, compartidos por todos los subcomandos.
type rootOptions struct {
	configPath  string
	verbose     bool
	logFormat   string
	metricsFile string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("alphaspike failed", "err", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "alphaspike",
		Short: "Daily-bar feature scanner, backtester and signal tracker",
		Long: `AlphaSpike evaluates a fixed set of feature detectors over the daily
price history of every symbol, caches the per-day hit lists and measures
how those signals performed afterwards.

Examples:
  alphaspike scan --end-date 20240105
  alphaspike backtest --feature bbc --year 2023
  alphaspike track --feature bbc --analyze`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "config/config.yaml", "path to config file")
	pf.BoolVar(&opts.verbose, "verbose", false, "set log level to debug")
	pf.StringVar(&opts.logFormat, "format", "", "log format: text|json (overrides config)")
	pf.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")

	root.AddCommand(newScanCmd(opts), newBacktestCmd(opts), newTrackCmd(opts))
	root.SetGlobalNormalizationFunc(normalizeFlag)
	return root
}

// normalizeFlag acepta --end_date como alias de --end-date.
func normalizeFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// loadConfig carga la configuración y aplica los overrides de los flags.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	setupLogger(cfg.Log)
	return cfg, nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
