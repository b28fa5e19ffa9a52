package domain

// workitem.go: contrato entre el orquestador y los workers.
//
// Un WorkItem lleva solo lo que el worker necesita: símbolo, columnas mínimas,
// nombre de la feature y umbral de histórico. Nada de handles de DB ni cache.

// WorkItemVersion se incrementa cuando cambia la forma de WorkItem o de las
// columnas que viajan en Bars.
const WorkItemVersion = 1

// WorkItem es la unidad de trabajo despachada a un worker.
type WorkItem struct {
	Version int
	Symbol  string
	Feature string
	MinDays int
	Bars    Series
}

// NewWorkItem construye un WorkItem recortando las barras a las columnas que
// leen los detectores (OHLC, prevClose, pctChange, volumen).
func NewWorkItem(feature string, minDays int, symbol string, bars Series) WorkItem {
	slim := make(Series, len(bars))
	for i, b := range bars {
		slim[i] = Bar{
			Symbol:    symbol,
			Date:      b.Date,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			PrevClose: b.PrevClose,
			PctChange: b.PctChange,
			Volume:    b.Volume,
		}
	}
	return WorkItem{
		Version: WorkItemVersion,
		Symbol:  symbol,
		Feature: feature,
		MinDays: minDays,
		Bars:    slim,
	}
}

// OutcomeStatus clasifica el resultado de un WorkItem.
type OutcomeStatus string

const (
	StatusOK    OutcomeStatus = "ok"
	StatusSkip  OutcomeStatus = "skip"
	StatusError OutcomeStatus = "error"
)

// WorkOutcome es lo que devuelve un worker.
type WorkOutcome struct {
	Symbol string
	Status OutcomeStatus
	Signal bool  // solo significativo si Status == StatusOK
	Err    error // causa si Status es StatusSkip o StatusError
}
