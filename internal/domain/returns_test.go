package domain

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeSeries crea una serie con fechas consecutivas 20240101, 20240102, ...
func makeSeries(symbol string, opens, closes []float64) Series {
	s := make(Series, len(opens))
	for i := range opens {
		s[i] = Bar{
			Symbol: symbol,
			Date:   fmt.Sprintf("202401%02d", i+1),
			Open:   opens[i],
			High:   math.Max(opens[i], closes[i]),
			Low:    math.Min(opens[i], closes[i]),
			Close:  closes[i],
		}
	}
	return s
}

func TestComputeReturns_WorkedExample(t *testing.T) {
	s := makeSeries("000001.SZ",
		[]float64{10.0, 10.5, 10.8, 11.0, 11.2, 11.0, 10.8},
		[]float64{10.4, 10.7, 11.0, 11.3, 11.5, 11.2, 10.9},
	)

	r, ok := ComputeReturns(s, "20240101", []int{5})
	require.True(t, ok)

	assert.Equal(t, "000001.SZ", r.Symbol)
	assert.Equal(t, "20240102", r.EntryDate)
	assert.Equal(t, 10.5, r.EntryPrice)

	p5 := r.Period(5)
	require.NotNil(t, p5)
	assert.Equal(t, "20240106", p5.ExitDate)
	assert.Equal(t, 11.2, p5.ExitPrice)
	assert.InDelta(t, 6.67, p5.ReturnPct, 0.001)

	// max close 11.5 en el día 4
	assert.InDelta(t, 9.52, r.MaxReturnPct, 0.001)
	assert.Equal(t, 5, r.MaxWindow)
}

func TestComputeReturns_PartialHorizon(t *testing.T) {
	// exactamente 2 días después de la señal
	s := makeSeries("X", []float64{10, 10, 11}, []float64{10, 12, 11})

	r, ok := ComputeReturns(s, "20240101", []int{1, 2, 3})
	require.True(t, ok)

	require.NotNil(t, r.Period(1))
	require.NotNil(t, r.Period(2))
	assert.Nil(t, r.Period(3), "horizonte sin datos debe ser nil, nunca 0")
	_, present := r.Periods[3]
	assert.True(t, present)

	assert.InDelta(t, 20.0, r.Period(1).ReturnPct, 0.001)
	assert.InDelta(t, 10.0, r.Period(2).ReturnPct, 0.001)

	// max solo sobre los 2 días disponibles
	assert.Equal(t, 2, r.MaxWindow)
	assert.InDelta(t, 20.0, r.MaxReturnPct, 0.001)
}

func TestComputeReturns_SignalOnLastDay(t *testing.T) {
	s := makeSeries("X", []float64{10, 11}, []float64{10, 11})
	r, ok := ComputeReturns(s, "20240102", []int{1})
	assert.False(t, ok)
	assert.Nil(t, r)
}

func TestComputeReturns_NonPositiveEntry(t *testing.T) {
	for _, open := range []float64{0, -1} {
		s := makeSeries("X", []float64{10, open, 11}, []float64{10, 11, 12})
		r, ok := ComputeReturns(s, "20240101", []int{1, 2})
		assert.False(t, ok, "open=%v", open)
		assert.Nil(t, r)
	}
}

func TestComputeReturns_NoPeriods(t *testing.T) {
	s := makeSeries("X", []float64{10, 11}, []float64{10, 11})
	_, ok := ComputeReturns(s, "20240101", nil)
	assert.False(t, ok)
}

func TestComputeReturns_UnsortedInput(t *testing.T) {
	s := makeSeries("X", []float64{10, 10, 11}, []float64{10, 12, 11})
	s[0], s[2] = s[2], s[0]

	r, ok := ComputeReturns(s, "20240101", []int{1})
	require.True(t, ok)
	assert.Equal(t, "20240102", r.EntryDate)
	// la serie original no se muta
	assert.Equal(t, "20240103", s[0].Date)
}

func TestComputeReturns_NeverInfOrNaN(t *testing.T) {
	s := makeSeries("X", []float64{1, 0.0001, 1}, []float64{1, 5, 9})
	r, ok := ComputeReturns(s, "20240101", []int{1, 2})
	require.True(t, ok)
	for _, p := range r.Periods {
		require.NotNil(t, p)
		assert.False(t, math.IsInf(p.ReturnPct, 0))
		assert.False(t, math.IsNaN(p.ReturnPct))
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 6.67, Round2(6.666666))
	assert.Equal(t, -2.0, Round2(-2.004))
	assert.Equal(t, 0.0, Round2(0))
}
