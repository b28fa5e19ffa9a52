// Package backtest simula, para cada día hábil de un año, la compra al día
// siguiente de cada señal de una feature y agrega los retornos.
//
// Fase 1 carga todo el histórico en una sola query. Fase 2 reparte un task
// por símbolo entre los workers: cada uno evalúa el detector sobre los
// prefijos de su serie y atribuye retornos con domain.ComputeReturns.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/alphaspike/internal/domain"
	"github.com/alejandrodnm/alphaspike/internal/metrics"
	"github.com/alejandrodnm/alphaspike/internal/ports"
)

const (
	// DefaultHoldingDays es el horizonte de salida por defecto.
	DefaultHoldingDays = 5
	// DefaultWorkers es el tamaño del pool cuando el llamador no indica otro.
	DefaultWorkers = 6
)

// ProgressFunc recibe (símbolos completados, total de símbolos despachados).
type ProgressFunc func(completed, total int)

// Request describe un backtest anual.
type Request struct {
	Detector    ports.Detector
	Year        int
	HoldingDays int
	Workers     int // ≤0 → runtime.NumCPU()
	Progress    ProgressFunc
}

// DayRequest describe un backtest de un único día de señal.
type DayRequest struct {
	Detector    ports.Detector
	Date        string // YYYYMMDD
	HoldingDays int
	Workers     int
}

// Engine ejecuta backtests sobre una fuente de precios.
type Engine struct {
	prices  ports.PriceSource
	metrics *metrics.Metrics
}

// Option configura un Engine.
type Option func(*Engine)

// WithMetrics registra señales y fallos por feature.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New crea un Engine.
func New(prices ports.PriceSource, opts ...Option) *Engine {
	e := &Engine{prices: prices}
	for _, o := range opts {
		o(e)
	}
	return e
}

// BacktestYear devuelve las estadísticas del año y los trades ordenados por
// (SignalDate, Symbol). Un año sin días hábiles en los datos devuelve stats
// vacías sin error. Sólo la validación y la carga de datos son fatales.
func (e *Engine) BacktestYear(ctx context.Context, req Request) (domain.YearlyStats, []domain.BacktestResult, error) {
	if err := validate(req.Detector, req.HoldingDays); err != nil {
		return domain.YearlyStats{}, nil, fmt.Errorf("backtest.BacktestYear: %w", err)
	}
	if req.Year < 1 || req.Year > 9999 {
		return domain.YearlyStats{}, nil, fmt.Errorf("backtest.BacktestYear: %w: year %d out of range", domain.ErrValidation, req.Year)
	}
	feature := req.Detector.Name()
	start := time.Now()

	data, err := e.loadAll(ctx)
	if err != nil {
		return domain.YearlyStats{}, nil, fmt.Errorf("backtest.BacktestYear: %s: %w", feature, err)
	}

	days := domain.YearTradingDays(data, req.Year)
	if len(days) == 0 {
		slog.Warn("no trading days in data", "feature", feature, "year", req.Year)
		return domain.AggregateYear(feature, req.Year, nil, 0), []domain.BacktestResult{}, nil
	}

	results, failures := runTasks(takeTasks(data), taskConfig{
		detector: req.Detector,
		days:     days,
		holding:  req.HoldingDays,
	}, req.Workers, req.Progress)

	domain.SortBacktestResults(results)
	stats := domain.AggregateYear(feature, req.Year, results, len(days))
	e.metrics.Backtest(feature, req.Year, len(days), len(results), failures)

	slog.Info("backtest complete",
		"feature", feature,
		"year", req.Year,
		"trading_days", len(days),
		"signals", stats.TotalSignals,
		"win_rate", stats.WinRate,
		"failed_symbols", failures,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return stats, results, nil
}

// BacktestDay evalúa el detector en un único día de señal sobre todo el
// universo y devuelve los trades con horizonte completo.
func (e *Engine) BacktestDay(ctx context.Context, req DayRequest) ([]domain.BacktestResult, error) {
	if err := validate(req.Detector, req.HoldingDays); err != nil {
		return nil, fmt.Errorf("backtest.BacktestDay: %w", err)
	}
	if !domain.ValidDate(req.Date) {
		return nil, fmt.Errorf("backtest.BacktestDay: %w: date %q must be YYYYMMDD", domain.ErrValidation, req.Date)
	}

	data, err := e.loadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("backtest.BacktestDay: %s: %w", req.Detector.Name(), err)
	}

	results, _ := runTasks(takeTasks(data), taskConfig{
		detector: req.Detector,
		days:     []string{req.Date},
		holding:  req.HoldingDays,
	}, req.Workers, nil)
	domain.SortBacktestResults(results)
	return results, nil
}

// loadAll hace la carga de la fase 1: universo + una sola BatchLoad sin límite.
func (e *Engine) loadAll(ctx context.Context) (map[string]domain.Series, error) {
	symbols, err := e.prices.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("load symbols: %w: %w", domain.ErrPersistence, err)
	}
	data, err := e.prices.BatchLoad(ctx, symbols, "")
	if err != nil {
		return nil, fmt.Errorf("load bars: %w: %w", domain.ErrPersistence, err)
	}
	slog.Debug("price data loaded", "symbols", len(symbols), "loaded", len(data))
	return data, nil
}

func validate(d ports.Detector, holdingDays int) error {
	if d == nil {
		return fmt.Errorf("%w: detector is required", domain.ErrValidation)
	}
	if d.MinDays() < 1 {
		return fmt.Errorf("%w: %s: min days must be >= 1", domain.ErrValidation, d.Name())
	}
	if holdingDays < 1 {
		return fmt.Errorf("%w: holding days must be >= 1, got %d", domain.ErrValidation, holdingDays)
	}
	return nil
}
