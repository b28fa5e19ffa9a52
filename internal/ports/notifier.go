package ports

import (
	"context"

	"github.com/alejandrodnm/alphaspike/internal/domain"
)

// Notifier presenta los resultados al usuario.
// En la implementación de consola, imprime tablas formateadas.
type Notifier interface {
	NotifyScan(ctx context.Context, results []domain.ScanResult) error
	NotifyBacktest(ctx context.Context, stats domain.YearlyStats, results []domain.BacktestResult) error
	NotifyPerformance(ctx context.Context, perfs []domain.FeaturePerformance) error
	NotifyNegative(ctx context.Context, analyses []domain.NegativeAnalysis) error
}
