package domain

import "sort"

// DateLayout es el formato de fecha usado en todo el sistema (YYYYMMDD).
// Las fechas se comparan como strings: el orden lexicográfico coincide con el cronológico.
const DateLayout = "20060102"

// Bar es una fila diaria de precios para un símbolo.
type Bar struct {
	Symbol    string
	Date      string // YYYYMMDD
	Open      float64
	High      float64
	Low       float64
	Close     float64
	PrevClose float64
	Change    float64
	PctChange float64
	Volume    float64
	Amount    float64
}

// Series es el histórico diario de un símbolo, ordenado por fecha ascendente.
type Series []Bar

// Symbol devuelve el símbolo de la serie ("" si está vacía).
func (s Series) Symbol() string {
	if len(s) == 0 {
		return ""
	}
	return s[0].Symbol
}

// IsSorted indica si la serie está en orden ascendente por fecha.
func (s Series) IsSorted() bool {
	return sort.SliceIsSorted(s, func(i, j int) bool { return s[i].Date < s[j].Date })
}

// Sorted devuelve la serie ordenada por fecha. Si ya lo está, devuelve la misma
// serie sin copiar; si no, ordena una copia para no mutar datos compartidos.
func (s Series) Sorted() Series {
	if s.IsSorted() {
		return s
	}
	out := make(Series, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// UpTo devuelve el prefijo de la serie con fecha <= date (sin copiar).
// Requiere una serie ordenada.
func (s Series) UpTo(date string) Series {
	n := sort.Search(len(s), func(i int) bool { return s[i].Date > date })
	return s[:n]
}

// After devuelve los días estrictamente posteriores a date (sin copiar).
// Requiere una serie ordenada.
func (s Series) After(date string) Series {
	n := sort.Search(len(s), func(i int) bool { return s[i].Date > date })
	return s[n:]
}

// Last devuelve la última barra y false si la serie está vacía.
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// ValidDate comprueba que date tenga exactamente 8 dígitos (YYYYMMDD).
func ValidDate(date string) bool {
	if len(date) != 8 {
		return false
	}
	for _, r := range date {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
