package domain

import (
	"fmt"
	"sort"
	"time"
)

// HitList es el conjunto de símbolos que dieron señal para (feature, fecha).
// Se normaliza al construirla: ordenada y sin duplicados, de modo que dos
// listas con el mismo contenido son iguales independientemente del orden.
type HitList []string

// NewHitList normaliza los símbolos dados. Nunca devuelve nil.
func NewHitList(symbols []string) HitList {
	seen := make(map[string]struct{}, len(symbols))
	out := make(HitList, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Contains indica si el símbolo está en la lista (búsqueda binaria).
func (h HitList) Contains(symbol string) bool {
	i := sort.SearchStrings(h, symbol)
	return i < len(h) && h[i] == symbol
}

// Equal compara dos hit lists normalizadas.
func (h HitList) Equal(other HitList) bool {
	if len(h) != len(other) {
		return false
	}
	for i := range h {
		if h[i] != other[i] {
			return false
		}
	}
	return true
}

// CacheKey identifica un resultado de scan cacheado.
type CacheKey struct {
	Feature string
	Date    string // YYYYMMDD
}

// String devuelve la clave usada en el tier caliente: feature:{name}:{date}.
func (k CacheKey) String() string {
	return fmt.Sprintf("feature:%s:%s", k.Feature, k.Date)
}

// Provenance indica de dónde salió un ScanResult.
type Provenance int

const (
	ProvenanceComputed Provenance = iota // calculado en este scan
	ProvenanceCached                     // servido desde la cache
)

// String devuelve la etiqueta legible.
func (p Provenance) String() string {
	if p == ProvenanceCached {
		return "cached"
	}
	return "computed"
}

// ScanResult es el resultado de escanear una feature en una fecha.
// Inmutable una vez construido: no se comparte la HitList con el llamador.
type ScanResult struct {
	Feature    string
	Date       string
	Hits       HitList
	Provenance Provenance
	Scanned    int // símbolos evaluados con resultado "ok"
	Skipped    int // histórico insuficiente + ausentes del preload
	Errors     int // el detector falló
}

// FromCache indica si el resultado se sirvió desde la cache.
func (r ScanResult) FromCache() bool {
	return r.Provenance == ProvenanceCached
}

// Total devuelve scanned + skipped + errors.
func (r ScanResult) Total() int {
	return r.Scanned + r.Skipped + r.Errors
}

// ScanRun es la fila de auditoría de una invocación de scan.
type ScanRun struct {
	ID         string
	Feature    string
	Date       string
	Provenance Provenance
	Hits       int
	Scanned    int
	Skipped    int
	Errors     int
	Workers    int
	Duration   time.Duration
	CreatedAt  time.Time
}
