package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/alphaspike/internal/domain"
	"github.com/alejandrodnm/alphaspike/internal/metrics"
	"github.com/alejandrodnm/alphaspike/internal/ports"
)

// DefaultWorkers es el tamaño del pool cuando el llamador no indica otro.
const DefaultWorkers = 6

// ResultCache es el subconjunto de cache.Tiered que usa el scanner.
type ResultCache interface {
	Get(ctx context.Context, feature, date string) (domain.HitList, bool, error)
	Put(ctx context.Context, feature, date string, hits domain.HitList) error
}

// ProgressFunc recibe (completados, total) tras cada outcome.
// total es el número de items despachados, no el tamaño del universo.
type ProgressFunc func(completed, total int)

// ScanRequest describe un scan de una feature en una fecha.
type ScanRequest struct {
	Detector ports.Detector
	Date     string // YYYYMMDD
	Universe []string
	// Preloaded son las series ya cargadas hasta Date. Los símbolos del
	// universo que no aparecen cuentan como skipped.
	Preloaded map[string]domain.Series
	UseCache  bool
	Workers   int // ≤0 → runtime.NumCPU()
	Progress  ProgressFunc
}

// Scanner orquesta CheckCache → Dispatch → Collect → Persist.
type Scanner struct {
	cache   ResultCache
	runs    ports.RunRecorder
	metrics *metrics.Metrics
}

// Option configura un Scanner.
type Option func(*Scanner)

// WithRunRecorder guarda una fila de auditoría por scan (best-effort).
func WithRunRecorder(r ports.RunRecorder) Option {
	return func(s *Scanner) { s.runs = r }
}

// WithMetrics registra outcomes y duración.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// New crea un Scanner sobre la cache de resultados.
func New(cache ResultCache, opts ...Option) *Scanner {
	s := &Scanner{cache: cache}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scan evalúa el detector sobre todo el universo en la fecha pedida.
//
// Sólo terminan la operación los errores de validación y de persistencia
// (lectura o escritura del tier frío). Los fallos del detector se cuentan.
// El contexto sólo se consulta antes de despachar: un scan en curso no se
// cancela a medias.
func (s *Scanner) Scan(ctx context.Context, req ScanRequest) (domain.ScanResult, error) {
	if err := validate(req); err != nil {
		return domain.ScanResult{}, err
	}
	start := time.Now()
	feature := req.Detector.Name()

	if req.UseCache {
		hits, ok, err := s.cache.Get(ctx, feature, req.Date)
		if err != nil {
			return domain.ScanResult{}, fmt.Errorf("scanner.Scan: %s: check cache: %w", feature, err)
		}
		if ok {
			res := domain.ScanResult{
				Feature:    feature,
				Date:       req.Date,
				Hits:       domain.NewHitList(hits),
				Provenance: domain.ProvenanceCached,
			}
			s.finish(ctx, res, req.Workers, time.Since(start))
			return res, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return domain.ScanResult{}, fmt.Errorf("scanner.Scan: %s: %w", feature, err)
	}

	items, absent := buildWorkItems(req)
	total := len(items)

	var (
		signals   []string
		completed int
		res       = domain.ScanResult{
			Feature:    feature,
			Date:       req.Date,
			Provenance: domain.ProvenanceComputed,
			Skipped:    absent,
		}
	)
	if total > 0 {
		analyzeConcurrent(NewAnalyzer(req.Detector), items, req.Workers, func(out domain.WorkOutcome) {
			switch out.Status {
			case domain.StatusOK:
				res.Scanned++
				if out.Signal {
					signals = append(signals, out.Symbol)
				}
			case domain.StatusSkip:
				res.Skipped++
			default:
				res.Errors++
			}
			s.metrics.Outcome(feature, string(out.Status))

			completed++
			if req.Progress != nil {
				req.Progress(completed, total)
			}
		})
	}
	res.Hits = domain.NewHitList(signals)

	if err := s.cache.Put(ctx, feature, req.Date, res.Hits); err != nil {
		return domain.ScanResult{}, fmt.Errorf("scanner.Scan: %s: persist: %w", feature, err)
	}

	s.finish(ctx, res, req.Workers, time.Since(start))
	return res, nil
}

// ScanAllRequest describe un scan de varias features sobre la misma fecha.
type ScanAllRequest struct {
	Detectors []ports.Detector
	Date      string
	Universe  []string
	Preloaded map[string]domain.Series
	UseCache  bool
	Workers   int
	// Progress devuelve el callback de progreso para cada feature (puede ser nil).
	Progress func(feature string) ProgressFunc
	// OnResult se llama al terminar cada feature.
	OnResult func(domain.ScanResult)
}

// ScanAll escanea las features en orden. Un error de una feature corta el
// resto y devuelve los resultados obtenidos hasta entonces.
func (s *Scanner) ScanAll(ctx context.Context, req ScanAllRequest) ([]domain.ScanResult, error) {
	results := make([]domain.ScanResult, 0, len(req.Detectors))
	for _, d := range req.Detectors {
		var progress ProgressFunc
		if req.Progress != nil {
			progress = req.Progress(d.Name())
		}
		res, err := s.Scan(ctx, ScanRequest{
			Detector:  d,
			Date:      req.Date,
			Universe:  req.Universe,
			Preloaded: req.Preloaded,
			UseCache:  req.UseCache,
			Workers:   req.Workers,
			Progress:  progress,
		})
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if req.OnResult != nil {
			req.OnResult(res)
		}
	}
	return results, nil
}

func validate(req ScanRequest) error {
	if req.Detector == nil {
		return fmt.Errorf("scanner.Scan: %w: detector is required", domain.ErrValidation)
	}
	if req.Detector.MinDays() < 1 {
		return fmt.Errorf("scanner.Scan: %w: %s: min days must be >= 1", domain.ErrValidation, req.Detector.Name())
	}
	if !domain.ValidDate(req.Date) {
		return fmt.Errorf("scanner.Scan: %w: date %q must be YYYYMMDD", domain.ErrValidation, req.Date)
	}
	return nil
}

// buildWorkItems crea un item por símbolo del universo (sin duplicados)
// presente en Preloaded y cuenta los ausentes.
func buildWorkItems(req ScanRequest) (items []domain.WorkItem, absent int) {
	name, minDays := req.Detector.Name(), req.Detector.MinDays()
	seen := make(map[string]struct{}, len(req.Universe))
	items = make([]domain.WorkItem, 0, len(req.Universe))

	for _, symbol := range req.Universe {
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}

		series, ok := req.Preloaded[symbol]
		if !ok {
			absent++
			continue
		}
		bars := series.Sorted().UpTo(req.Date)
		items = append(items, domain.NewWorkItem(name, minDays, symbol, bars))
	}
	return items, absent
}

// finish registra métricas, log y auditoría. Nada de esto afecta al resultado.
func (s *Scanner) finish(ctx context.Context, res domain.ScanResult, workers int, elapsed time.Duration) {
	s.metrics.ScanDone(res.Feature, res.Provenance.String(), elapsed)

	slog.Info("scan complete",
		"feature", res.Feature,
		"date", res.Date,
		"provenance", res.Provenance.String(),
		"hits", len(res.Hits),
		"scanned", res.Scanned,
		"skipped", res.Skipped,
		"errors", res.Errors,
		"duration", elapsed.Round(time.Millisecond),
	)

	if s.runs == nil {
		return
	}
	run := domain.ScanRun{
		ID:         uuid.NewString(),
		Feature:    res.Feature,
		Date:       res.Date,
		Provenance: res.Provenance,
		Hits:       len(res.Hits),
		Scanned:    res.Scanned,
		Skipped:    res.Skipped,
		Errors:     res.Errors,
		Workers:    workers,
		Duration:   elapsed,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.runs.RecordRun(ctx, run); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("record scan run failed", "feature", res.Feature, "err", err)
	}
}
