package feature

// indicators.go: indicadores por índice sobre series diarias.
//
// Los detectores sólo miran las últimas barras, así que los indicadores se
// calculan en el índice pedido en vez de sobre la serie completa. Una
// ventana incompleta devuelve ok=false, que los detectores tratan como
// condición no cumplida.

import (
	"math"

	"github.com/alejandrodnm/alphaspike/internal/domain"
)

// meanAt es la media simple de v[i-period+1 .. i].
func meanAt(v []float64, i, period int) (float64, bool) {
	start := i - period + 1
	if period < 1 || start < 0 || i >= len(v) {
		return math.NaN(), false
	}
	var sum float64
	for _, x := range v[start : i+1] {
		sum += x
	}
	return sum / float64(period), true
}

// maxAt es el máximo de v[i-period+1 .. i].
func maxAt(v []float64, i, period int) (float64, bool) {
	start := i - period + 1
	if period < 1 || start < 0 || i >= len(v) {
		return math.NaN(), false
	}
	m := v[start]
	for _, x := range v[start+1 : i+1] {
		if x > m {
			m = x
		}
	}
	return m, true
}

// quantileAt es la fracción de la ventana que queda estrictamente por debajo
// de v[i]: 0 = mínimo histórico, cerca de 1 = máximo.
func quantileAt(v []float64, i, window int) (float64, bool) {
	start := i - window + 1
	if window < 1 || start < 0 || i >= len(v) {
		return math.NaN(), false
	}
	cur, below := v[i], 0
	for _, x := range v[start : i+1] {
		if x < cur {
			below++
		}
	}
	return float64(below) / float64(window), true
}

// pctRankAt es el percentil de v[i] sobre toda la serie, con empates
// promediados (1/n para el mínimo único, 1 para el máximo único).
func pctRankAt(v []float64, i int) float64 {
	cur := v[i]
	less, equal := 0, 0
	for _, x := range v {
		switch {
		case x < cur:
			less++
		case x == cur:
			equal++
		}
	}
	rank := float64(less) + float64(equal+1)/2
	return rank / float64(len(v))
}

// consecutiveAt indica si daily se cumple en los n días que terminan en i.
func consecutiveAt(i, n int, daily func(int) bool) bool {
	if i-n+1 < 0 {
		return false
	}
	for j := i - n + 1; j <= i; j++ {
		if !daily(j) {
			return false
		}
	}
	return true
}

// anyRecent indica si f se cumple en alguno de los últimos k índices de una
// serie de longitud n.
func anyRecent(n, k int, f func(int) bool) bool {
	for i := max(n-k, 0); i < n; i++ {
		if f(i) {
			return true
		}
	}
	return false
}

// upperShadowPct es (high - max(open, close)) / max(open, close) × 100.
func upperShadowPct(open, high, close float64) float64 {
	top := math.Max(open, close)
	if top <= 0 {
		return math.NaN()
	}
	return (high - top) / top * 100
}

// columns extrae las columnas que usan los detectores.
type columns struct {
	open, high, low, close, preClose, pct, vol []float64
}

func columnsOf(bars domain.Series) columns {
	c := columns{
		open:     make([]float64, len(bars)),
		high:     make([]float64, len(bars)),
		low:      make([]float64, len(bars)),
		close:    make([]float64, len(bars)),
		preClose: make([]float64, len(bars)),
		pct:      make([]float64, len(bars)),
		vol:      make([]float64, len(bars)),
	}
	for i, b := range bars {
		c.open[i], c.high[i], c.low[i], c.close[i] = b.Open, b.High, b.Low, b.Close
		c.preClose[i], c.pct[i], c.vol[i] = b.PrevClose, b.PctChange, b.Volume
	}
	return c
}

// stdAt es la desviación típica de v[i-period+1 .. i]. sample=true divide
// por n-1, si no por n.
func stdAt(v []float64, i, period int, sample bool) (float64, bool) {
	m, ok := meanAt(v, i, period)
	if !ok || (sample && period < 2) {
		return math.NaN(), false
	}
	var ss float64
	for _, x := range v[i-period+1 : i+1] {
		ss += (x - m) * (x - m)
	}
	d := float64(period)
	if sample {
		d--
	}
	return math.Sqrt(ss / d), true
}

// trueRange de la barra i; la primera barra no tiene rango verdadero.
func trueRange(c columns, i int) float64 {
	if i == 0 {
		return math.NaN()
	}
	return math.Max(c.high[i]-c.low[i],
		math.Max(math.Abs(c.high[i]-c.close[i-1]), math.Abs(c.low[i]-c.close[i-1])))
}

// atrSeries es el ATR con suavizado de Wilder. Definido desde el índice period.
func atrSeries(c columns, period int) []float64 {
	n := len(c.close)
	out := nanSlice(n)
	if n <= period {
		return out
	}
	var sum float64
	for i := 1; i <= period; i++ {
		sum += trueRange(c, i)
	}
	out[period] = sum / float64(period)
	for i := period + 1; i < n; i++ {
		out[i] = (out[i-1]*float64(period-1) + trueRange(c, i)) / float64(period)
	}
	return out
}

// adxSeries es el ADX de Wilder. Definido desde el índice 2*period-1.
func adxSeries(c columns, period int) []float64 {
	n := len(c.close)
	out := nanSlice(n)
	if n < 2*period {
		return out
	}
	p := float64(period)

	dm := func(i int) (plus, minus float64) {
		up := c.high[i] - c.high[i-1]
		down := c.low[i-1] - c.low[i]
		if up > down && up > 0 {
			plus = up
		}
		if down > up && down > 0 {
			minus = down
		}
		return plus, minus
	}
	dx := func(sumPlus, sumMinus, sumTR float64) float64 {
		if sumTR == 0 {
			return 0
		}
		pdi, mdi := 100*sumPlus/sumTR, 100*sumMinus/sumTR
		if pdi+mdi == 0 {
			return 0
		}
		return 100 * math.Abs(pdi-mdi) / (pdi + mdi)
	}

	var sPlus, sMinus, sTR float64
	for i := 1; i < period; i++ {
		pl, mi := dm(i)
		sPlus, sMinus, sTR = sPlus+pl, sMinus+mi, sTR+trueRange(c, i)
	}
	smooth := func(i int) float64 {
		pl, mi := dm(i)
		sPlus = sPlus - sPlus/p + pl
		sMinus = sMinus - sMinus/p + mi
		sTR = sTR - sTR/p + trueRange(c, i)
		return dx(sPlus, sMinus, sTR)
	}

	var sumDX float64
	for i := period; i < 2*period; i++ {
		sumDX += smooth(i)
	}
	out[2*period-1] = sumDX / p
	for i := 2 * period; i < n; i++ {
		out[i] = (out[i-1]*(p-1) + smooth(i)) / p
	}
	return out
}

// bbWidthSeries es el ancho de Bollinger (±2σ poblacional) en % de la media.
func bbWidthSeries(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	for i := period - 1; i < len(closes); i++ {
		m, _ := meanAt(closes, i, period)
		sd, _ := stdAt(closes, i, period, false)
		if m != 0 {
			out[i] = 4 * sd / m * 100
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// defined indica si v no tiene NaN en [from, to].
func defined(v []float64, from, to int) bool {
	if from < 0 || to >= len(v) {
		return false
	}
	for _, x := range v[from : to+1] {
		if math.IsNaN(x) {
			return false
		}
	}
	return true
}
