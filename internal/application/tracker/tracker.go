// Package tracker mide a posteriori cómo rindieron las señales guardadas en
// el tier frío: retornos a 1, 2 y 3 días por feature.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alejandrodnm/alphaspike/internal/domain"
	"github.com/alejandrodnm/alphaspike/internal/ports"
)

// ProgressFunc recibe (señales procesadas, total de señales).
type ProgressFunc func(completed, total int)

// Tracker combina el histórico de scans con la fuente de precios.
type Tracker struct {
	history ports.ScanHistory
	prices  ports.PriceSource
}

// New crea un Tracker.
func New(history ports.ScanHistory, prices ports.PriceSource) *Tracker {
	return &Tracker{history: history, prices: prices}
}

// signals agrupa los retornos calculados por feature.
type signals struct {
	features []string // orden alfabético
	returns  map[string][]domain.SignalReturn
	dates    map[string][2]string // primera y última fecha de scan
}

// Track devuelve el rendimiento por feature, ordenado por nombre.
func (t *Tracker) Track(ctx context.Context, f ports.ScanFilter, progress ProgressFunc) ([]domain.FeaturePerformance, error) {
	sig, err := t.collect(ctx, f, progress)
	if err != nil {
		return nil, fmt.Errorf("tracker.Track: %w", err)
	}
	out := make([]domain.FeaturePerformance, 0, len(sig.features))
	for _, name := range sig.features {
		rng := sig.dates[name]
		out = append(out, domain.NewFeaturePerformance(name, sig.returns[name], rng[0], rng[1]))
	}
	return out, nil
}

// Analyze clasifica las señales de cada feature en todo-negativas, mixtas y
// todo-positivas. El desglose completo sólo se incluye si se filtra por una
// feature concreta.
func (t *Tracker) Analyze(ctx context.Context, f ports.ScanFilter, progress ProgressFunc) ([]domain.NegativeAnalysis, error) {
	sig, err := t.collect(ctx, f, progress)
	if err != nil {
		return nil, fmt.Errorf("tracker.Analyze: %w", err)
	}
	withCategories := f.Feature != ""
	out := make([]domain.NegativeAnalysis, 0, len(sig.features))
	for _, name := range sig.features {
		out = append(out, domain.AnalyzeNegative(name, sig.returns[name], withCategories))
	}
	return out, nil
}

func (t *Tracker) collect(ctx context.Context, f ports.ScanFilter, progress ProgressFunc) (signals, error) {
	if err := validateFilter(f); err != nil {
		return signals{}, err
	}

	scans, err := t.history.ListScans(ctx, f)
	if err != nil {
		return signals{}, fmt.Errorf("list scans: %w", err)
	}

	sig := signals{
		returns: make(map[string][]domain.SignalReturn),
		dates:   make(map[string][2]string),
	}
	needed := make(map[string]struct{})
	total := 0
	for _, s := range scans {
		if _, ok := sig.dates[s.Feature]; !ok {
			sig.features = append(sig.features, s.Feature)
			sig.dates[s.Feature] = [2]string{s.Date, s.Date}
			sig.returns[s.Feature] = []domain.SignalReturn{}
		}
		rng := sig.dates[s.Feature]
		rng[0], rng[1] = min(rng[0], s.Date), max(rng[1], s.Date)
		sig.dates[s.Feature] = rng

		for _, sym := range s.Hits {
			needed[sym] = struct{}{}
		}
		total += len(s.Hits)
	}
	sort.Strings(sig.features)
	if total == 0 {
		return sig, nil
	}

	symbols := make([]string, 0, len(needed))
	for s := range needed {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	slog.Info("loading price data", "symbols", len(symbols), "signals", total)

	data, err := t.prices.BatchLoad(ctx, symbols, "")
	if err != nil {
		return signals{}, fmt.Errorf("load bars: %w: %w", domain.ErrPersistence, err)
	}

	done := 0
	for _, s := range scans {
		for _, sym := range s.Hits {
			if series, ok := data[sym]; ok {
				if r, ok := domain.ComputeReturns(series, s.Date, domain.TrackPeriods); ok {
					sr := domain.NewSignalReturn(r)
					sr.Symbol = sym
					sig.returns[s.Feature] = append(sig.returns[s.Feature], sr)
				}
			}
			done++
			if progress != nil {
				progress(done, total)
			}
		}
	}
	return sig, nil
}

func validateFilter(f ports.ScanFilter) error {
	for _, d := range []string{f.StartDate, f.EndDate} {
		if d != "" && !domain.ValidDate(d) {
			return fmt.Errorf("%w: date %q must be YYYYMMDD", domain.ErrValidation, d)
		}
	}
	if f.StartDate != "" && f.EndDate != "" && f.StartDate > f.EndDate {
		return fmt.Errorf("%w: start date %s after end date %s", domain.ErrValidation, f.StartDate, f.EndDate)
	}
	return nil
}
