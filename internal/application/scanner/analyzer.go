package scanner

import (
	"fmt"

	"github.com/alejandrodnm/alphaspike/internal/domain"
	"github.com/alejandrodnm/alphaspike/internal/ports"
)

// Analyzer evalúa un WorkItem con el detector inyectado.
// Es lo único que corre dentro de un worker: no toca cache ni DB.
type Analyzer struct {
	detector ports.Detector
}

// NewAnalyzer crea un Analyzer que delega en el detector dado.
func NewAnalyzer(d ports.Detector) *Analyzer {
	return &Analyzer{detector: d}
}

// Analyze clasifica el item: histórico corto → skip (el detector no se
// llama); error o panic del detector → error; si no, ok con la señal.
func (a *Analyzer) Analyze(item domain.WorkItem) (out domain.WorkOutcome) {
	out.Symbol = item.Symbol

	if len(item.Bars) < item.MinDays {
		out.Status = domain.StatusSkip
		out.Err = fmt.Errorf("%w: %s: %d < %d bars", domain.ErrDataInsufficient, item.Symbol, len(item.Bars), item.MinDays)
		return out
	}

	defer func() {
		if r := recover(); r != nil {
			out.Status = domain.StatusError
			out.Signal = false
			out.Err = fmt.Errorf("%w: %s: panic: %v", domain.ErrDetector, item.Symbol, r)
		}
	}()

	signal, err := a.detector.Detect(item.Bars)
	if err != nil {
		out.Status = domain.StatusError
		out.Err = fmt.Errorf("%w: %s: %w", domain.ErrDetector, item.Symbol, err)
		return out
	}
	out.Status = domain.StatusOK
	out.Signal = signal
	return out
}
