package ports

import "github.com/alejandrodnm/alphaspike/internal/domain"

// Detector evalúa una regla booleana sobre una ventana histórica acotada.
// Un error (o un panic) equivale a "sin señal, registrar como error".
type Detector interface {
	Name() string
	// MinDays es el histórico mínimo que necesita (>= 1).
	MinDays() int
	// Detect evalúa la señal sobre la última barra de la serie.
	Detect(bars domain.Series) (bool, error)
}
