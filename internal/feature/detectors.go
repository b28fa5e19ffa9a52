package feature

import (
	"math"
	"strings"

	"github.com/alejandrodnm/alphaspike/internal/domain"
)

// recentWindow es cuántas de las últimas barras puede caer la señal.
const recentWindow = 3

// dropNaN descarta barras con algún campo usado a NaN.
func dropNaN(bars domain.Series) domain.Series {
	clean := true
	for _, b := range bars {
		if hasNaN(b) {
			clean = false
			break
		}
	}
	if clean {
		return bars
	}
	out := make(domain.Series, 0, len(bars))
	for _, b := range bars {
		if !hasNaN(b) {
			out = append(out, b)
		}
	}
	return out
}

func hasNaN(b domain.Bar) bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.PrevClose, b.PctChange, b.Volume} {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// ─── weak_to_strong ───

// limitUpThreshold: ChiNext (30xxxx) limita al 20%, el resto al 10%.
func limitUpThreshold(symbol string) float64 {
	if strings.HasPrefix(symbol, "30") {
		return 19.2
	}
	return 9.5
}

// weakToStrong: dos subidas al límite seguidas (T-2, T-1) y en T abre por
// debajo del cierre de T-1 sin llegar a recuperarlo.
func weakToStrong(bars domain.Series) (bool, error) {
	bars = dropNaN(bars)
	n := len(bars)
	if n < 3 {
		return false, nil
	}
	threshold := limitUpThreshold(bars.Symbol())
	t2, t1, t := bars[n-3], bars[n-2], bars[n-1]

	if t2.PctChange <= threshold || t1.PctChange <= threshold {
		return false, nil
	}
	return t.Open < t1.Close && t.High < t1.Close, nil
}

// ─── volume_stagnation ───

// volumeStagnation: volumen > 1.5× su media de 10 días con precio casi plano
// (-3% < pct < 3%), cierre sobre MA10 y MA3 > MA5, durante 3 días seguidos,
// con el precio en la franja baja (5%-45%) de los últimos 500 días.
func volumeStagnation(bars domain.Series) (bool, error) {
	const (
		consecutive = 3
		quantileWin = 500
	)
	bars = dropNaN(bars)
	if len(bars) < 550 {
		return false, nil
	}
	c := columnsOf(bars)

	daily := func(j int) bool {
		volMA10, ok1 := meanAt(c.vol, j, 10)
		ma3, ok2 := meanAt(c.close, j, 3)
		ma5, ok3 := meanAt(c.close, j, 5)
		ma10, ok4 := meanAt(c.close, j, 10)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return false
		}
		return c.vol[j] > volMA10*1.5 &&
			c.pct[j] > -3 && c.pct[j] < 3 &&
			c.close[j] > ma10 &&
			ma3 > ma5
	}

	return anyRecent(len(bars), recentWindow, func(i int) bool {
		if !consecutiveAt(i, consecutive, daily) {
			return false
		}
		q, ok := quantileAt(c.close, i, quantileWin)
		return ok && q >= 0.05 && q <= 0.45
	}), nil
}

// ─── high_retracement ───

// highRetracement: sombra superior > 2% con volumen moderado (1-1.5× MA20)
// y precio bajo el 55% de los últimos 500 días, dos días seguidos.
func highRetracement(bars domain.Series) (bool, error) {
	const (
		consecutive = 2
		quantileWin = 500
	)
	bars = dropNaN(bars)
	if len(bars) < 6*250 {
		return false, nil
	}
	c := columnsOf(bars)

	daily := func(j int) bool {
		if upperShadowPct(c.open[j], c.high[j], c.close[j]) <= 2 {
			return false
		}
		volMA20, ok := meanAt(c.vol, j, 20)
		if !ok || c.vol[j] < volMA20 || c.vol[j] > volMA20*1.5 {
			return false
		}
		q, ok := quantileAt(c.close, j, quantileWin)
		return ok && q < 0.55
	}

	return anyRecent(len(bars), recentWindow, func(i int) bool {
		return consecutiveAt(i, consecutive, daily)
	}), nil
}

// ─── bbc ───

// bbc (big bearish candle): tras un día al límite con volumen contenido y
// MA5 > MA10, abre con gap al alza marcando máximo de 10 días (sin superar
// el de 144) y cierra más de un 5% por debajo de la apertura.
func bbc(bars domain.Series) (bool, error) {
	bars = dropNaN(bars)
	if len(bars) < 4*250 {
		return false, nil
	}
	c := columnsOf(bars)

	volQ := make(map[int]float64)
	volQuantile := func(j int) float64 {
		if q, ok := volQ[j]; ok {
			return q
		}
		q := pctRankAt(c.vol, j)
		volQ[j] = q
		return q
	}
	volQuantileMA := func(j, period int) (float64, bool) {
		if j-period+1 < 0 {
			return math.NaN(), false
		}
		var sum float64
		for k := j - period + 1; k <= j; k++ {
			sum += volQuantile(k)
		}
		return sum / float64(period), true
	}

	signal := func(i int) bool {
		p := i - 1
		if p < 0 {
			return false
		}
		// volumen del día previo por debajo del percentil 75
		qMA10, ok1 := volQuantileMA(p, 10)
		qMA3, ok2 := volQuantileMA(p, 3)
		if !ok1 || !ok2 || qMA10 >= 0.75 || qMA3 >= 0.75 || volQuantile(p) >= 0.75 {
			return false
		}
		// día previo al límite y cerrando en máximos
		if c.pct[p] <= 9.5 || c.close[p] != c.high[p] {
			return false
		}
		// gap al alza
		high10, ok3 := maxAt(c.high, i, 10)
		high144, ok4 := maxAt(c.high, i, 144)
		if !ok3 || !ok4 {
			return false
		}
		gapUp := c.open[i] > c.preClose[i] && c.high[i] >= high10 && c.high[i] < high144
		if !gapUp || c.close[i] >= c.open[i]*0.95 || c.close[i] >= c.open[i] {
			return false
		}
		ma5, ok5 := meanAt(c.close, p, 5)
		ma10, ok6 := meanAt(c.close, p, 10)
		return ok5 && ok6 && ma5 > ma10
	}

	return anyRecent(len(bars), recentWindow, signal), nil
}

// ─── bullish_cannon ───

// bullishCannon: vela fuerte con volumen que rompe el máximo de 20 días,
// 1 a 3 días de cuerpo con volumen contraído que no pierde su apertura, y
// hoy una segunda vela que rompe el cuerpo cerrando cerca del máximo.
func bullishCannon(bars domain.Series) (bool, error) {
	bars = dropNaN(bars)
	n := len(bars)
	if n < 30 {
		return false, nil
	}
	c := columnsOf(bars)
	second := n - 1

	for k := 1; k <= 3; k++ {
		first := second - k - 1
		if first < 20 {
			continue
		}
		if cannonAt(c, first, second) {
			return true, nil
		}
	}
	return false, nil
}

func cannonAt(c columns, first, second int) bool {
	// primer cañón
	rng := c.high[first] - c.low[first]
	if rng == 0 || c.pct[first]/100 < 0.07 {
		return false
	}
	volMA5, ok := meanAt(c.vol, first, 5)
	if !ok || c.vol[first] < volMA5*1.8 {
		return false
	}
	body := math.Abs(c.close[first] - c.open[first])
	upper := c.high[first] - math.Max(c.open[first], c.close[first])
	if body/rng < 0.40 || upper/rng > 0.50 {
		return false
	}
	hhv20, ok := maxAt(c.high, first-1, 20)
	if !ok || c.close[first] <= hhv20 {
		return false
	}

	// cuerpo
	var volSum, bodyHigh float64
	bodyLow := math.Inf(1)
	for j := first + 1; j < second; j++ {
		volSum += c.vol[j]
		if (c.high[j]-c.low[j])/c.close[j-1] > 0.08 {
			return false
		}
		bodyHigh = math.Max(bodyHigh, c.high[j])
		bodyLow = math.Min(bodyLow, c.low[j])
	}
	volMean := volSum / float64(second-first-1)
	if volMean > c.vol[first]*0.8 || bodyLow < c.open[first] {
		return false
	}

	// segundo cañón
	rng2 := c.high[second] - c.low[second]
	if c.close[second] <= bodyHigh || c.vol[second] < volMean || rng2 == 0 {
		return false
	}
	return (c.high[second]-c.close[second])/rng2 <= 0.25
}

// ─── consolidation_breakout ───

// consolidationBreakout: en los últimos 3 días hay una ruptura (cierre sobre
// el máximo de 10 días con volumen > 1.5× MA20) precedida, en los 10 días
// anteriores, por al menos 3 días seguidos de lateralización: ATR14 < 1.5%
// del cierre, ADX14 < 22, ancho de Bollinger en el 30% inferior de 20 días
// y MA20 plana.
func consolidationBreakout(bars domain.Series) (bool, error) {
	const (
		minConsolidation = 3
		lookback         = 10
	)
	bars = dropNaN(bars)
	n := len(bars)
	if n < 60 {
		return false, nil
	}
	c := columnsOf(bars)
	atr := atrSeries(c, 14)
	adx := adxSeries(c, 14)
	bbw := bbWidthSeries(c.close, 20)
	ma20 := nanSlice(n)
	for i := 19; i < n; i++ {
		ma20[i], _ = meanAt(c.close, i, 20)
	}

	flatMA := func(j int) bool {
		if !defined(ma20, j-9, j) || j-5 < 0 || math.IsNaN(ma20[j-5]) {
			return false
		}
		sd, _ := stdAt(ma20, j, 10, true)
		return math.Abs(ma20[j]-ma20[j-5])/ma20[j] < 0.003 && sd/ma20[j] < 0.002
	}
	daily := func(j int) bool {
		if math.IsNaN(atr[j]) || math.IsNaN(adx[j]) || !defined(bbw, j-19, j) {
			return false
		}
		q, _ := quantileAt(bbw, j, 20)
		return atr[j]/c.close[j]*100 < 1.5 && adx[j] < 22 && q < 0.30 && flatMA(j)
	}
	consolidated := func(j int) bool { return consecutiveAt(j, minConsolidation, daily) }

	breakout := func(i int) bool {
		hhv, ok := maxAt(c.high, i-1, lookback)
		volMA20, ok2 := meanAt(c.vol, i, 20)
		return ok && ok2 && c.close[i] > hhv && c.vol[i] > volMA20*1.5
	}

	return anyRecent(n, recentWindow, func(i int) bool {
		if !breakout(i) {
			return false
		}
		for j := max(i-10, 0); j < i; j++ {
			if consolidated(j) {
				return true
			}
		}
		return false
	}), nil
}
