// Package cache compone el tier caliente (Redis, con expiración) y el tier
// frío (SQL, fuente de verdad) en una única cache de hit lists por
// (feature, fecha).
//
// Lectura: caliente → frío. Un hit caliente vuelve enseguida y repara en
// segundo plano la copia fría si falta; un hit frío repuebla el caliente.
// Escritura: frío primero (obligatorio), caliente después (best-effort).
// Los fallos del tier caliente nunca llegan al llamador.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/alphaspike/internal/domain"
	"github.com/alejandrodnm/alphaspike/internal/metrics"
	"github.com/alejandrodnm/alphaspike/internal/ports"
)

// DefaultTTL es la expiración de las claves en el tier caliente.
const DefaultTTL = 14 * 24 * time.Hour

// Tiered es la cache de resultados de dos niveles.
type Tiered struct {
	hot     ports.HotTier // nil = sólo tier frío
	cold    ports.ColdTier
	ttl     time.Duration
	metrics *metrics.Metrics

	repairs sync.WaitGroup
}

// Option configura un Tiered.
type Option func(*Tiered)

// WithTTL cambia la expiración del tier caliente. Valores ≤0 se ignoran.
func WithTTL(ttl time.Duration) Option {
	return func(t *Tiered) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithMetrics registra lookups y escrituras por tier.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tiered) { t.metrics = m }
}

// New crea la cache. hot puede ser nil.
func New(cold ports.ColdTier, hot ports.HotTier, opts ...Option) *Tiered {
	t := &Tiered{hot: hot, cold: cold, ttl: DefaultTTL}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Get devuelve el hit list de (feature, date) si está en algún tier.
// Sólo un fallo del tier frío devuelve error.
func (t *Tiered) Get(ctx context.Context, feature, date string) (domain.HitList, bool, error) {
	key := domain.CacheKey{Feature: feature, Date: date}

	if t.hot != nil {
		hits, ok, err := t.hot.TryHot(ctx, key)
		switch {
		case err != nil:
			t.metrics.Lookup(metrics.TierHot, metrics.ResultError)
			slog.Warn("hot tier read failed, falling back to cold", "key", key.String(), "err", err)
		case ok:
			t.metrics.Lookup(metrics.TierHot, metrics.ResultHit)
			t.repairCold(ctx, key, hits)
			return hits, true, nil
		default:
			t.metrics.Lookup(metrics.TierHot, metrics.ResultMiss)
		}
	}

	hits, ok, err := t.cold.TryCold(ctx, key)
	if err != nil {
		t.metrics.Lookup(metrics.TierCold, metrics.ResultError)
		return nil, false, fmt.Errorf("cache.Get: %w", err)
	}
	if !ok {
		t.metrics.Lookup(metrics.TierCold, metrics.ResultMiss)
		return nil, false, nil
	}
	t.metrics.Lookup(metrics.TierCold, metrics.ResultHit)

	t.storeHot(ctx, key, hits)
	return hits, true, nil
}

// Put reemplaza el hit list de (feature, date) en ambos tiers.
// El fallo del tier frío es fatal; el del caliente sólo se loguea.
func (t *Tiered) Put(ctx context.Context, feature, date string, hits domain.HitList) error {
	key := domain.CacheKey{Feature: feature, Date: date}
	hits = domain.NewHitList(hits)

	if err := t.cold.StoreCold(ctx, key, hits); err != nil {
		t.metrics.Write(metrics.TierCold, metrics.ResultError)
		return fmt.Errorf("cache.Put: %w", err)
	}
	t.metrics.Write(metrics.TierCold, metrics.ResultOK)

	t.storeHot(ctx, key, hits)
	return nil
}

// Wait bloquea hasta que terminen las reparaciones del tier frío en curso.
func (t *Tiered) Wait() {
	t.repairs.Wait()
}

func (t *Tiered) storeHot(ctx context.Context, key domain.CacheKey, hits domain.HitList) {
	if t.hot == nil {
		return
	}
	if err := t.hot.StoreHot(ctx, key, hits, t.ttl); err != nil {
		t.metrics.Write(metrics.TierHot, metrics.ResultError)
		slog.Warn("hot tier write failed", "key", key.String(), "err", err)
		return
	}
	t.metrics.Write(metrics.TierHot, metrics.ResultOK)
}

// repairCold escribe en el tier frío un valor que sólo estaba en el caliente.
// Sólo inserta si la clave sigue vacía: un Put concurrente nunca se pisa.
// No bloquea al llamador ni hereda su cancelación.
func (t *Tiered) repairCold(ctx context.Context, key domain.CacheKey, hits domain.HitList) {
	ctx = context.WithoutCancel(ctx)
	t.repairs.Add(1)
	go func() {
		defer t.repairs.Done()
		_, ok, err := t.cold.TryCold(ctx, key)
		if err != nil {
			slog.Warn("cold tier repair: read failed", "key", key.String(), "err", err)
			return
		}
		if ok {
			return
		}
		written, err := t.cold.StoreColdIfAbsent(ctx, key, hits)
		if err != nil {
			slog.Warn("cold tier repair: write failed", "key", key.String(), "err", err)
			return
		}
		if !written {
			slog.Debug("cold tier repair skipped, key written meanwhile", "key", key.String())
			return
		}
		slog.Debug("cold tier repaired from hot tier", "key", key.String(), "hits", len(hits))
	}()
}
