package domain

import "sort"

// TrackPeriods son los horizontes que reporta el tracker de señales.
var TrackPeriods = []int{1, 2, 3}

// StoredScan es un hit list persistido en el tier frío.
type StoredScan struct {
	Feature string
	Date    string
	Hits    HitList
}

// SignalReturn son los retornos 1d/2d/3d de una señal almacenada.
type SignalReturn struct {
	Symbol     string
	SignalDate string
	EntryDate  string
	EntryPrice float64
	Returns    map[int]*float64 // horizonte → retorno (nil = sin datos)
}

// NewSignalReturn adapta una atribución de retornos a los horizontes del tracker.
func NewSignalReturn(r *Returns) SignalReturn {
	sr := SignalReturn{
		Symbol:     r.Symbol,
		SignalDate: r.SignalDate,
		EntryDate:  r.EntryDate,
		EntryPrice: Round2(r.EntryPrice),
		Returns:    make(map[int]*float64, len(TrackPeriods)),
	}
	for _, p := range TrackPeriods {
		if pr := r.Period(p); pr != nil {
			v := pr.ReturnPct
			sr.Returns[p] = &v
		} else {
			sr.Returns[p] = nil
		}
	}
	return sr
}

// Return devuelve el retorno del horizonte y si existe.
func (s SignalReturn) Return(period int) (float64, bool) {
	v := s.Returns[period]
	if v == nil {
		return 0, false
	}
	return *v, true
}

// complete indica si los tres horizontes tienen valor.
func (s SignalReturn) complete() bool {
	for _, p := range TrackPeriods {
		if _, ok := s.Return(p); !ok {
			return false
		}
	}
	return true
}

func (s SignalReturn) allSign(positive bool) bool {
	if !s.complete() {
		return false
	}
	for _, p := range TrackPeriods {
		v, _ := s.Return(p)
		if (positive && v <= 0) || (!positive && v >= 0) {
			return false
		}
	}
	return true
}

// PeriodStats son las estadísticas de un horizonte.
type PeriodStats struct {
	Period    int
	Count     int
	WinRate   float64
	AvgReturn float64
	MaxReturn float64
	MaxSymbol string
	MaxDate   string
	MinReturn float64
	MinSymbol string
	MinDate   string
}

// ComputePeriodStats agrega los retornos válidos de un horizonte.
func ComputePeriodStats(returns []SignalReturn, period int) PeriodStats {
	st := PeriodStats{Period: period}
	var sum float64
	wins := 0
	for _, r := range returns {
		v, ok := r.Return(period)
		if !ok {
			continue
		}
		if st.Count == 0 || v > st.MaxReturn {
			st.MaxReturn, st.MaxSymbol, st.MaxDate = v, r.Symbol, r.SignalDate
		}
		if st.Count == 0 || v < st.MinReturn {
			st.MinReturn, st.MinSymbol, st.MinDate = v, r.Symbol, r.SignalDate
		}
		st.Count++
		sum += v
		if v > 0 {
			wins++
		}
	}
	if st.Count == 0 {
		return st
	}
	st.WinRate = Round2(float64(wins) / float64(st.Count) * 100)
	st.AvgReturn = Round2(sum / float64(st.Count))
	st.MaxReturn = Round2(st.MaxReturn)
	st.MinReturn = Round2(st.MinReturn)
	return st
}

// FeaturePerformance es el rendimiento agregado de una feature.
type FeaturePerformance struct {
	Feature      string
	TotalSignals int
	ValidSignals int // con retorno 1d disponible
	Stats        map[int]PeriodStats
	StartDate    string
	EndDate      string
}

// NewFeaturePerformance agrega los retornos de una feature.
func NewFeaturePerformance(feature string, returns []SignalReturn, startDate, endDate string) FeaturePerformance {
	fp := FeaturePerformance{
		Feature:      feature,
		TotalSignals: len(returns),
		Stats:        make(map[int]PeriodStats, len(TrackPeriods)),
		StartDate:    startDate,
		EndDate:      endDate,
	}
	for _, r := range returns {
		if _, ok := r.Return(1); ok {
			fp.ValidSignals++
		}
	}
	for _, p := range TrackPeriods {
		fp.Stats[p] = ComputePeriodStats(returns, p)
	}
	return fp
}

// SignalCategory agrupa señales con la misma forma de retornos.
type SignalCategory struct {
	Signals []SignalReturn
	Count   int
	Ratio   float64        // % sobre el total válido
	Avg     map[int]float64 // horizonte → retorno medio
}

func newSignalCategory(signals []SignalReturn, total int) SignalCategory {
	cat := SignalCategory{Count: len(signals), Avg: make(map[int]float64, len(TrackPeriods))}
	if total > 0 {
		cat.Ratio = Round2(float64(cat.Count) / float64(total) * 100)
	}
	for _, p := range TrackPeriods {
		if cat.Count == 0 {
			cat.Avg[p] = 0
			continue
		}
		var sum float64
		for _, s := range signals {
			v, _ := s.Return(p)
			sum += v
		}
		cat.Avg[p] = Round2(sum / float64(cat.Count))
	}
	cat.Signals = append([]SignalReturn(nil), signals...)
	sort.Slice(cat.Signals, func(i, j int) bool {
		if cat.Signals[i].SignalDate != cat.Signals[j].SignalDate {
			return cat.Signals[i].SignalDate > cat.Signals[j].SignalDate
		}
		return cat.Signals[i].Symbol > cat.Signals[j].Symbol
	})
	return cat
}

// NegativeAnalysis clasifica las señales completas (1d/2d/3d) de una feature.
type NegativeAnalysis struct {
	Feature       string
	TotalSignals  int // señales con los tres horizontes
	Negative      SignalCategory
	Positive      *SignalCategory // solo si se analiza una única feature
	Mixed         *SignalCategory
	NegativeRatio float64
}

// AnalyzeNegative clasifica retornos en todo-negativo / mixto / todo-positivo.
func AnalyzeNegative(feature string, returns []SignalReturn, withCategories bool) NegativeAnalysis {
	var valid, neg, pos, mixed []SignalReturn
	for _, r := range returns {
		if !r.complete() {
			continue
		}
		valid = append(valid, r)
		switch {
		case r.allSign(false):
			neg = append(neg, r)
		case r.allSign(true):
			pos = append(pos, r)
		default:
			mixed = append(mixed, r)
		}
	}

	a := NegativeAnalysis{
		Feature:      feature,
		TotalSignals: len(valid),
		Negative:     newSignalCategory(neg, len(valid)),
	}
	a.NegativeRatio = a.Negative.Ratio
	if withCategories {
		p := newSignalCategory(pos, len(valid))
		m := newSignalCategory(mixed, len(valid))
		a.Positive, a.Mixed = &p, &m
	}
	return a
}
