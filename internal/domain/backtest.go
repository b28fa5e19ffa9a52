package domain

import (
	"fmt"
	"sort"
)

// BacktestResult es un trade simulado a partir de una señal.
// Entry/exit se derivan de los precios, no los provee el llamador.
type BacktestResult struct {
	Symbol         string
	SignalDate     string
	EntryDate      string
	EntryPrice     float64
	ExitDate       string
	ExitPrice      float64
	TotalReturnPct float64 // retorno al cierre del día de salida
	MaxReturnPct   float64 // mejor cierre dentro del holding
	HoldingDays    int     // días efectivamente mantenidos
}

// NewBacktestResult convierte una atribución de retornos en un trade para el
// horizonte dado. Devuelve false si ese horizonte no tiene datos.
func NewBacktestResult(r *Returns, holdingDays int) (BacktestResult, bool) {
	p := r.Period(holdingDays)
	if p == nil {
		return BacktestResult{}, false
	}
	return BacktestResult{
		Symbol:         r.Symbol,
		SignalDate:     r.SignalDate,
		EntryDate:      r.EntryDate,
		EntryPrice:     r.EntryPrice,
		ExitDate:       p.ExitDate,
		ExitPrice:      p.ExitPrice,
		TotalReturnPct: p.ReturnPct,
		MaxReturnPct:   r.MaxReturnPct,
		HoldingDays:    r.MaxWindow,
	}, true
}

// YearlyStats agrega los trades de una feature en un año.
// Se deriva bajo demanda: nunca es la fuente de verdad.
type YearlyStats struct {
	Feature      string
	Year         int
	TotalSignals int

	WinCount  int     // TotalReturnPct > 0
	LossCount int     // TotalReturnPct <= 0 (cero cuenta como pérdida)
	WinRate   float64 // %

	MaxWinCount int     // MaxReturnPct > 0
	MaxWinRate  float64 // %

	TotalReturnSum float64
	WinReturnSum   float64
	LossReturnSum  float64
	MaxReturnSum   float64
	AvgReturn      float64
	MaxReturn      float64
	MinReturn      float64

	TradingDays int // días hábiles distintos encontrados en los datos
}

// AggregateYear calcula las estadísticas anuales. Sin señales devuelve
// todo a cero (con TradingDays informado), no es un error.
func AggregateYear(feature string, year int, results []BacktestResult, tradingDays int) YearlyStats {
	stats := YearlyStats{Feature: feature, Year: year, TradingDays: tradingDays}
	if len(results) == 0 {
		return stats
	}

	n := len(results)
	stats.TotalSignals = n
	stats.MaxReturn = results[0].TotalReturnPct
	stats.MinReturn = results[0].TotalReturnPct

	var total, win, loss, maxSum float64
	for _, r := range results {
		total += r.TotalReturnPct
		maxSum += r.MaxReturnPct
		if r.TotalReturnPct > 0 {
			stats.WinCount++
			win += r.TotalReturnPct
		} else {
			stats.LossCount++
			loss += r.TotalReturnPct
		}
		if r.MaxReturnPct > 0 {
			stats.MaxWinCount++
		}
		if r.TotalReturnPct > stats.MaxReturn {
			stats.MaxReturn = r.TotalReturnPct
		}
		if r.TotalReturnPct < stats.MinReturn {
			stats.MinReturn = r.TotalReturnPct
		}
	}

	stats.WinRate = Round2(float64(stats.WinCount) / float64(n) * 100)
	stats.MaxWinRate = Round2(float64(stats.MaxWinCount) / float64(n) * 100)
	stats.TotalReturnSum = Round2(total)
	stats.WinReturnSum = Round2(win)
	stats.LossReturnSum = Round2(loss)
	stats.MaxReturnSum = Round2(maxSum)
	stats.AvgReturn = Round2(stats.TotalReturnSum / float64(n))
	stats.MaxReturn = Round2(stats.MaxReturn)
	stats.MinReturn = Round2(stats.MinReturn)
	return stats
}

// SortBacktestResults ordena por (SignalDate, Symbol) para un output estable.
func SortBacktestResults(results []BacktestResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].SignalDate != results[j].SignalDate {
			return results[i].SignalDate < results[j].SignalDate
		}
		return results[i].Symbol < results[j].Symbol
	})
}

// YearTradingDays extrae los días hábiles de un año a partir de los datos
// cargados, ordenados. Los datos son la única fuente: no se consulta calendario.
func YearTradingDays(data map[string]Series, year int) []string {
	prefix := yearPrefix(year)
	seen := make(map[string]struct{})
	for _, s := range data {
		for _, b := range s {
			if len(b.Date) == 8 && b.Date[:4] == prefix {
				seen[b.Date] = struct{}{}
			}
		}
	}
	days := make([]string, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

func yearPrefix(year int) string {
	return fmt.Sprintf("%04d", year)
}
