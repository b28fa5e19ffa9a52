package backtest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/alphaspike/internal/application/backtest"
	"github.com/alejandrodnm/alphaspike/internal/domain"
)

type fakePrices struct {
	data      map[string]domain.Series
	loadErr   error
	batchEnds []string
}

func (p *fakePrices) Load(_ context.Context, symbol, endDate string) (domain.Series, error) {
	return p.data[symbol].UpTo(endDate), nil
}

func (p *fakePrices) BatchLoad(_ context.Context, symbols []string, endDate string) (map[string]domain.Series, error) {
	p.batchEnds = append(p.batchEnds, endDate)
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	out := make(map[string]domain.Series, len(symbols))
	for _, s := range symbols {
		if bars, ok := p.data[s]; ok {
			out[s] = bars
		}
	}
	return out, nil
}

func (p *fakePrices) Symbols(context.Context) ([]string, error) {
	out := make([]string, 0, len(p.data))
	for s := range p.data {
		out = append(out, s)
	}
	return out, nil
}

type fakeDetector struct {
	name    string
	minDays int
	fn      func(domain.Series) (bool, error)
}

func (d fakeDetector) Name() string                            { return d.name }
func (d fakeDetector) MinDays() int                            { return d.minDays }
func (d fakeDetector) Detect(bars domain.Series) (bool, error) { return d.fn(bars) }

// daily crea barras consecutivas desde 2023-12-26 con open = close = precios[i].
func daily(symbol string, prices ...float64) domain.Series {
	dates := []string{
		"20231226", "20231227", "20231228", "20231229",
		"20240102", "20240103", "20240104", "20240105", "20240108", "20240109",
		"20240110", "20240111", "20240112",
	}
	out := make(domain.Series, len(prices))
	for i, p := range prices {
		out[i] = domain.Bar{Symbol: symbol, Date: dates[i], Open: p, Close: p}
	}
	return out
}

// onDate da señal cuando la última barra es la fecha dada.
func onDate(date string) fakeDetector {
	return fakeDetector{name: "on_date", minDays: 3, fn: func(bars domain.Series) (bool, error) {
		last, _ := bars.Last()
		return last.Date == date, nil
	}}
}

func TestBacktestYear_SignalsAndAggregation(t *testing.T) {
	prices := &fakePrices{data: map[string]domain.Series{
		// señal 20240103 → entrada 20240104 open 10, salida (2 días) 20240105 close 11
		"A": daily("A", 9, 9, 9, 9, 9, 9, 10, 11, 12, 12),
		// entrada 20 → salida 19: pérdida
		"B": daily("B", 20, 20, 20, 20, 20, 20, 20, 19, 25, 25),
	}}

	stats, results, err := backtest.New(prices).BacktestYear(context.Background(), backtest.Request{
		Detector:    onDate("20240103"),
		Year:        2024,
		HoldingDays: 2,
		Workers:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, prices.batchEnds, "una sola carga sin límite de fecha")

	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].Symbol)
	assert.Equal(t, "20240104", results[0].EntryDate)
	assert.Equal(t, "20240105", results[0].ExitDate)
	assert.InDelta(t, 10.0, results[0].TotalReturnPct, 1e-9)
	assert.Equal(t, 2, results[0].HoldingDays)

	assert.Equal(t, "B", results[1].Symbol)
	assert.InDelta(t, -5.0, results[1].TotalReturnPct, 1e-9)

	assert.Equal(t, 2, stats.TotalSignals)
	assert.Equal(t, 1, stats.WinCount)
	assert.Equal(t, 1, stats.LossCount)
	assert.InDelta(t, 50.0, stats.WinRate, 1e-9)
	assert.InDelta(t, 2.5, stats.AvgReturn, 1e-9)
	assert.Equal(t, 6, stats.TradingDays)
}

func TestBacktestYear_IncompleteHorizonIsDropped(t *testing.T) {
	prices := &fakePrices{data: map[string]domain.Series{
		"A": daily("A", 9, 9, 9, 9, 9, 9, 9, 9, 9, 10),
	}}
	// señal en el penúltimo día: sólo 1 día futuro para un holding de 5
	_, results, err := backtest.New(prices).BacktestYear(context.Background(), backtest.Request{
		Detector:    onDate("20240108"),
		Year:        2024,
		HoldingDays: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBacktestYear_MinDaysGatesPrefix(t *testing.T) {
	prices := &fakePrices{data: map[string]domain.Series{
		"A": daily("A", 9, 9, 9, 9, 9, 9, 9, 9, 9, 10),
	}}
	var prefixes []int
	d := fakeDetector{name: "len", minDays: 8, fn: func(bars domain.Series) (bool, error) {
		prefixes = append(prefixes, len(bars))
		return false, nil
	}}
	_, _, err := backtest.New(prices).BacktestYear(context.Background(), backtest.Request{
		Detector: d, Year: 2024, HoldingDays: 1, Workers: 1,
	})
	require.NoError(t, err)
	// Días de 2024 son los índices 4..9 → prefijos 5..10; sólo ≥8 se evalúan
	assert.Equal(t, []int{8, 9, 10}, prefixes)
}

func TestBacktestYear_FailingSymbolContributesNothing(t *testing.T) {
	prices := &fakePrices{data: map[string]domain.Series{
		"A":   daily("A", 9, 9, 9, 9, 9, 9, 10, 11, 12, 12),
		"ERR": daily("ERR", 9, 9, 9, 9, 9, 9, 10, 11, 12, 12),
		"PAN": daily("PAN", 9, 9, 9, 9, 9, 9, 10, 11, 12, 12),
	}}
	d := fakeDetector{name: "mixed", minDays: 3, fn: func(bars domain.Series) (bool, error) {
		last, _ := bars.Last()
		switch bars.Symbol() {
		case "ERR":
			if last.Date == "20240108" {
				return false, errors.New("bad window")
			}
		case "PAN":
			if last.Date == "20240108" {
				panic("index out of range")
			}
		}
		return last.Date == "20240103", nil
	}}

	var done, total int
	stats, results, err := backtest.New(prices).BacktestYear(context.Background(), backtest.Request{
		Detector: d, Year: 2024, HoldingDays: 2, Workers: 3,
		Progress: func(c, tot int) { done, total = c, tot },
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A", results[0].Symbol)
	assert.Equal(t, 1, stats.TotalSignals)
	assert.Equal(t, 3, done)
	assert.Equal(t, 3, total)
}

func TestBacktestYear_NoTradingDays(t *testing.T) {
	prices := &fakePrices{data: map[string]domain.Series{"A": daily("A", 1, 2, 3)}}
	stats, results, err := backtest.New(prices).BacktestYear(context.Background(), backtest.Request{
		Detector: onDate("x"), Year: 2030, HoldingDays: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 2030, stats.Year)
	assert.Zero(t, stats.TotalSignals)
	assert.Zero(t, stats.TradingDays)
}

func TestBacktestYear_DeterministicAcrossWorkers(t *testing.T) {
	data := map[string]domain.Series{}
	for i := 0; i < 12; i++ {
		s := fmt.Sprintf("S%02d", i)
		base := float64(10 + i)
		data[s] = daily(s, base, base, base, base, base, base+1, base+2, base+1, base+3, base+2, base+4)
	}
	d := fakeDetector{name: "odd", minDays: 3, fn: func(bars domain.Series) (bool, error) {
		return len(bars)%2 == 1, nil
	}}

	var baseline []domain.BacktestResult
	for i, w := range []int{1, 4, 0} {
		_, results, err := backtest.New(&fakePrices{data: data}).BacktestYear(context.Background(), backtest.Request{
			Detector: d, Year: 2024, HoldingDays: 2, Workers: w,
		})
		require.NoError(t, err)
		if i == 0 {
			baseline = results
			require.NotEmpty(t, baseline)
			continue
		}
		assert.Equal(t, baseline, results, "workers=%d", w)
	}
	for i := 1; i < len(baseline); i++ {
		prev, cur := baseline[i-1], baseline[i]
		assert.True(t, prev.SignalDate < cur.SignalDate ||
			(prev.SignalDate == cur.SignalDate && prev.Symbol < cur.Symbol))
	}
}

func TestBacktestYear_Errors(t *testing.T) {
	prices := &fakePrices{data: map[string]domain.Series{}, loadErr: errors.New("db gone")}
	e := backtest.New(prices)

	_, _, err := e.BacktestYear(context.Background(), backtest.Request{Detector: onDate("x"), Year: 2024, HoldingDays: 5})
	assert.ErrorIs(t, err, domain.ErrPersistence)

	_, _, err = e.BacktestYear(context.Background(), backtest.Request{Year: 2024, HoldingDays: 5})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = e.BacktestYear(context.Background(), backtest.Request{Detector: onDate("x"), Year: 2024, HoldingDays: 0})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBacktestDay(t *testing.T) {
	prices := &fakePrices{data: map[string]domain.Series{
		"A": daily("A", 9, 9, 9, 9, 9, 9, 10, 11, 12, 12),
		"B": daily("B", 9, 9, 9, 9, 9, 9, 10, 11, 12, 12),
	}}
	d := fakeDetector{name: "only_a", minDays: 3, fn: func(bars domain.Series) (bool, error) {
		return bars.Symbol() == "A", nil
	}}

	results, err := backtest.New(prices).BacktestDay(context.Background(), backtest.DayRequest{
		Detector: d, Date: "20240103", HoldingDays: 3,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "20240103", results[0].SignalDate)
	assert.Equal(t, "20240108", results[0].ExitDate)
	assert.InDelta(t, 20.0, results[0].TotalReturnPct, 1e-9)
	assert.InDelta(t, 20.0, results[0].MaxReturnPct, 1e-9)

	_, err = backtest.New(prices).BacktestDay(context.Background(), backtest.DayRequest{
		Detector: d, Date: "2024-01-03", HoldingDays: 3,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
