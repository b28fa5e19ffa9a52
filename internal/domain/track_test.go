package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sr(symbol, date string, rets ...float64) SignalReturn {
	out := SignalReturn{Symbol: symbol, SignalDate: date, Returns: map[int]*float64{}}
	for i, p := range TrackPeriods {
		if i < len(rets) {
			v := rets[i]
			out.Returns[p] = &v
		} else {
			out.Returns[p] = nil
		}
	}
	return out
}

func TestNewSignalReturn_FromReturns(t *testing.T) {
	s := makeSeries("A", []float64{10, 10, 10}, []float64{10, 11, 9})
	r, ok := ComputeReturns(s, "20240101", TrackPeriods)
	require.True(t, ok)

	got := NewSignalReturn(r)
	v1, ok1 := got.Return(1)
	v2, ok2 := got.Return(2)
	_, ok3 := got.Return(3)
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.False(t, ok3)
	assert.Equal(t, 10.0, v1)
	assert.Equal(t, -10.0, v2)
}

func TestComputePeriodStats(t *testing.T) {
	returns := []SignalReturn{
		sr("A", "20240101", 2),
		sr("B", "20240102", -4),
		sr("C", "20240103", 6),
		sr("D", "20240104"),
	}
	st := ComputePeriodStats(returns, 1)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 66.67, st.WinRate)
	assert.Equal(t, 1.33, st.AvgReturn)
	assert.Equal(t, 6.0, st.MaxReturn)
	assert.Equal(t, "C", st.MaxSymbol)
	assert.Equal(t, -4.0, st.MinReturn)
	assert.Equal(t, "20240102", st.MinDate)

	empty := ComputePeriodStats(returns, 3)
	assert.Equal(t, 0, empty.Count)
	assert.Equal(t, 0.0, empty.WinRate)
}

func TestNewFeaturePerformance(t *testing.T) {
	returns := []SignalReturn{sr("A", "20240101", 1, 2, 3), sr("B", "20240102")}
	fp := NewFeaturePerformance("bbc", returns, "20240101", "20240102")
	assert.Equal(t, 2, fp.TotalSignals)
	assert.Equal(t, 1, fp.ValidSignals)
	assert.Len(t, fp.Stats, 3)
	assert.Equal(t, 100.0, fp.Stats[2].WinRate)
}

func TestAnalyzeNegative(t *testing.T) {
	returns := []SignalReturn{
		sr("A", "20240101", -1, -2, -3),
		sr("B", "20240102", 1, 2, 3),
		sr("C", "20240103", 1, -2, 3),
		sr("D", "20240104", -1, -1),     // incompleta: fuera
		sr("E", "20240105", -2, -2, -2), // negativa
	}

	a := AnalyzeNegative("bbc", returns, true)
	assert.Equal(t, 4, a.TotalSignals)
	assert.Equal(t, 2, a.Negative.Count)
	assert.Equal(t, 50.0, a.NegativeRatio)
	assert.Equal(t, -1.5, a.Negative.Avg[1])
	// ordenadas por fecha descendente
	assert.Equal(t, "E", a.Negative.Signals[0].Symbol)

	require.NotNil(t, a.Positive)
	require.NotNil(t, a.Mixed)
	assert.Equal(t, 1, a.Positive.Count)
	assert.Equal(t, 1, a.Mixed.Count)

	noCats := AnalyzeNegative("bbc", returns, false)
	assert.Nil(t, noCats.Positive)
	assert.Nil(t, noCats.Mixed)
}
