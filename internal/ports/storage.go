package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/alphaspike/internal/domain"
)

// HotTier es la cache efímera con expiración (Redis).
// Cualquier error significa "tier ausente": el llamador lo trata como miss/no-op.
type HotTier interface {
	TryHot(ctx context.Context, key domain.CacheKey) (domain.HitList, bool, error)
	StoreHot(ctx context.Context, key domain.CacheKey, hits domain.HitList, ttl time.Duration) error
}

// ColdTier es el almacenamiento durable y única fuente de verdad.
// Sus errores son fatales para la operación que lo usa.
type ColdTier interface {
	TryCold(ctx context.Context, key domain.CacheKey) (domain.HitList, bool, error)
	// StoreCold reemplaza (upsert) el hit list de la clave; nunca mezcla.
	StoreCold(ctx context.Context, key domain.CacheKey, hits domain.HitList) error
	// StoreColdIfAbsent inserta sólo si la clave no existe. Devuelve si escribió.
	StoreColdIfAbsent(ctx context.Context, key domain.CacheKey, hits domain.HitList) (bool, error)
}

// ScanFilter acota los resultados almacenados que lee el tracker.
// Campos vacíos no filtran.
type ScanFilter struct {
	Feature   string
	StartDate string // inclusive, YYYYMMDD
	EndDate   string // inclusive, YYYYMMDD
}

// ScanHistory lista hit lists persistidos (lo usa el tracker).
type ScanHistory interface {
	ListScans(ctx context.Context, f ScanFilter) ([]domain.StoredScan, error)
	FeatureNames(ctx context.Context) ([]string, error)
}

// RunRecorder guarda una fila de auditoría por invocación de scan.
type RunRecorder interface {
	RecordRun(ctx context.Context, run domain.ScanRun) error
}

// PriceSource da acceso al histórico diario. endDate "" = sin límite.
type PriceSource interface {
	Load(ctx context.Context, symbol, endDate string) (domain.Series, error)
	BatchLoad(ctx context.Context, symbols []string, endDate string) (map[string]domain.Series, error)
	Symbols(ctx context.Context) ([]string, error)
}
