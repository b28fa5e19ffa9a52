package domain

import "math"

// returns.go: única fuente de cálculo de retornos.
//
// Entrada: open del primer día hábil posterior a la señal.
// Salida:  close del día P-ésimo posterior a la señal.
// El backtest y el tracker llaman SIEMPRE a ComputeReturns: la semántica de
// retorno tiene que ser idéntica en todos los reportes.

// PeriodReturn es el resultado de un horizonte de holding concreto.
type PeriodReturn struct {
	Period    int
	ExitDate  string
	ExitPrice float64
	ReturnPct float64 // redondeado a 2 decimales
}

// Returns es la atribución de retornos de una señal.
type Returns struct {
	Symbol     string
	SignalDate string
	EntryDate  string
	EntryPrice float64

	// Periods mapea horizonte → retorno. Un horizonte sin datos suficientes
	// está presente con valor nil: ausencia NO es un trade en breakeven.
	Periods map[int]*PeriodReturn

	// MaxReturnPct usa el cierre máximo dentro de los primeros
	// min(max(periods), días futuros disponibles) días.
	MaxReturnPct float64
	MaxWindow    int // días efectivamente usados para MaxReturnPct
}

// Period devuelve el retorno del horizonte dado, o nil si no hay datos.
func (r *Returns) Period(p int) *PeriodReturn {
	if r == nil {
		return nil
	}
	return r.Periods[p]
}

// ComputeReturns calcula retornos de entrada/salida tras signalDate.
// Devuelve false si no hay días futuros, si el precio de entrada es <= 0,
// o si no se pidió ningún horizonte válido.
func ComputeReturns(series Series, signalDate string, periods []int) (*Returns, bool) {
	maxPeriod := 0
	for _, p := range periods {
		if p > maxPeriod {
			maxPeriod = p
		}
	}
	if maxPeriod < 1 {
		return nil, false
	}

	future := series.Sorted().After(signalDate)
	if len(future) == 0 {
		return nil, false
	}

	entry := future[0]
	if entry.Open <= 0 || math.IsNaN(entry.Open) {
		return nil, false
	}

	out := &Returns{
		Symbol:     entry.Symbol,
		SignalDate: signalDate,
		EntryDate:  entry.Date,
		EntryPrice: entry.Open,
		Periods:    make(map[int]*PeriodReturn, len(periods)),
	}

	for _, p := range periods {
		if p < 1 || len(future) < p {
			out.Periods[p] = nil
			continue
		}
		exit := future[p-1]
		out.Periods[p] = &PeriodReturn{
			Period:    p,
			ExitDate:  exit.Date,
			ExitPrice: exit.Close,
			ReturnPct: pctChange(entry.Open, exit.Close),
		}
	}

	window := min(maxPeriod, len(future))
	maxClose := future[0].Close
	for _, b := range future[1:window] {
		if b.Close > maxClose {
			maxClose = b.Close
		}
	}
	out.MaxWindow = window
	out.MaxReturnPct = pctChange(entry.Open, maxClose)

	return out, true
}

// pctChange devuelve (to-from)/from×100 redondeado a 2 decimales.
func pctChange(from, to float64) float64 {
	return Round2((to - from) / from * 100)
}

// Round2 redondea a 2 decimales (half away from zero).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
