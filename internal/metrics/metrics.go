// Package metrics agrupa los contadores Prometheus de scans, cache y backtest.
// No hay servidor HTTP: el CLI vuelca el registry a un fichero textfile al
// terminar (formato node_exporter) cuando se pasa --metrics-file.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resultados de lookup/escritura en cache.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
	ResultOK    = "ok"

	TierHot  = "hot"
	TierCold = "cold"
)

// Metrics contiene todos los collectors. Un *Metrics nil es válido: todos
// los métodos son no-op, así los paquetes no necesitan comprobarlo.
type Metrics struct {
	Registry *prometheus.Registry

	ScanOutcomes   *prometheus.CounterVec
	ScanDuration   *prometheus.HistogramVec
	CacheLookups   *prometheus.CounterVec
	CacheWrites    *prometheus.CounterVec
	BacktestSignal *prometheus.CounterVec
	BacktestFailed *prometheus.CounterVec
	BacktestDays   *prometheus.GaugeVec
}

// New crea los collectors sobre un registry propio.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		ScanOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphaspike_scan_outcomes_total",
				Help: "Worker outcomes per feature and status (ok, skip, error)",
			},
			[]string{"feature", "status"},
		),

		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alphaspike_scan_duration_seconds",
				Help:    "Wall time of one scan invocation",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"feature", "provenance"},
		),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphaspike_cache_lookups_total",
				Help: "Result cache lookups by tier and result (hit, miss, error)",
			},
			[]string{"tier", "result"},
		),

		CacheWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphaspike_cache_writes_total",
				Help: "Result cache writes by tier and result (ok, error)",
			},
			[]string{"tier", "result"},
		),

		BacktestSignal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphaspike_backtest_signals_total",
				Help: "Backtest signals with a complete holding window",
			},
			[]string{"feature"},
		),

		BacktestFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphaspike_backtest_symbol_failures_total",
				Help: "Symbols whose backtest worker failed and contributed nothing",
			},
			[]string{"feature"},
		),

		BacktestDays: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "alphaspike_backtest_trading_days",
				Help: "Trading days found in the data for the backtested year",
			},
			[]string{"feature", "year"},
		),
	}

	m.Registry.MustRegister(
		m.ScanOutcomes,
		m.ScanDuration,
		m.CacheLookups,
		m.CacheWrites,
		m.BacktestSignal,
		m.BacktestFailed,
		m.BacktestDays,
	)
	return m
}

// Outcome suma un resultado de worker.
func (m *Metrics) Outcome(feature, status string) {
	if m == nil {
		return
	}
	m.ScanOutcomes.WithLabelValues(feature, status).Inc()
}

// ScanDone registra la duración de un scan.
func (m *Metrics) ScanDone(feature, provenance string, d time.Duration) {
	if m == nil {
		return
	}
	m.ScanDuration.WithLabelValues(feature, provenance).Observe(d.Seconds())
}

// Lookup registra una lectura de cache.
func (m *Metrics) Lookup(tier, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(tier, result).Inc()
}

// Write registra una escritura de cache.
func (m *Metrics) Write(tier, result string) {
	if m == nil {
		return
	}
	m.CacheWrites.WithLabelValues(tier, result).Inc()
}

// Backtest registra el resultado agregado de un backtest anual.
func (m *Metrics) Backtest(feature string, year, tradingDays, signals, failures int) {
	if m == nil {
		return
	}
	m.BacktestSignal.WithLabelValues(feature).Add(float64(signals))
	m.BacktestFailed.WithLabelValues(feature).Add(float64(failures))
	m.BacktestDays.WithLabelValues(feature, fmt.Sprintf("%d", year)).Set(float64(tradingDays))
}

// WriteTextfile vuelca el registry en formato textfile de node_exporter.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("metrics.WriteTextfile: %w", err)
	}
	return nil
}
