// Package feature contiene los detectores de patrones y su registro.
//
// Cada detector es una regla booleana sobre la última parte de una serie
// diaria, con un histórico mínimo (MinDays) por debajo del cual el
// orquestador ni siquiera lo llama.
package feature

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alejandrodnm/alphaspike/internal/domain"
	"github.com/alejandrodnm/alphaspike/internal/ports"
)

// Detector adapta una función de detección a ports.Detector.
type Detector struct {
	name    string
	minDays int
	detect  func(domain.Series) (bool, error)
}

// NewDetector crea un detector con nombre y histórico mínimo.
func NewDetector(name string, minDays int, fn func(domain.Series) (bool, error)) Detector {
	return Detector{name: name, minDays: minDays, detect: fn}
}

func (d Detector) Name() string { return d.name }
func (d Detector) MinDays() int { return d.minDays }

// Detect evalúa la señal sobre la última barra.
func (d Detector) Detect(bars domain.Series) (bool, error) {
	return d.detect(bars)
}

// Registry mantiene los detectores disponibles en orden de registro.
type Registry struct {
	order  []string
	byName map[string]ports.Detector
}

// NewRegistry registra los detectores dados. Un nombre repetido o un
// MinDays < 1 es un error de programación.
func NewRegistry(detectors ...ports.Detector) (*Registry, error) {
	r := &Registry{byName: make(map[string]ports.Detector, len(detectors))}
	for _, d := range detectors {
		if d.MinDays() < 1 {
			return nil, fmt.Errorf("feature.NewRegistry: %w: %s: min days must be >= 1", domain.ErrValidation, d.Name())
		}
		if _, dup := r.byName[d.Name()]; dup {
			return nil, fmt.Errorf("feature.NewRegistry: %w: duplicate detector %q", domain.ErrValidation, d.Name())
		}
		r.order = append(r.order, d.Name())
		r.byName[d.Name()] = d
	}
	return r, nil
}

// Default devuelve el registro con los detectores incluidos.
func Default() *Registry {
	r, err := NewRegistry(
		NewDetector("bbc", 1000, bbc),
		NewDetector("volume_stagnation", 550, volumeStagnation),
		NewDetector("high_retracement", 1500, highRetracement),
		NewDetector("weak_to_strong", 5, weakToStrong),
		NewDetector("bullish_cannon", 30, bullishCannon),
		NewDetector("consolidation_breakout", 60, consolidationBreakout),
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Get busca un detector por nombre.
func (r *Registry) Get(name string) (ports.Detector, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names devuelve los nombres en orden de registro.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// All devuelve todos los detectores en orden de registro.
func (r *Registry) All() []ports.Detector {
	out := make([]ports.Detector, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.byName[n])
	}
	return out
}

// Select resuelve una lista de nombres. Lista vacía = todos. Los nombres
// desconocidos se loguean y se omiten; los repetidos se ignoran.
func (r *Registry) Select(names []string) []ports.Detector {
	if len(names) == 0 {
		return r.All()
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]ports.Detector, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		d, ok := r.byName[n]
		if !ok {
			slog.Warn("unknown feature, skipping", "feature", n, "available", strings.Join(r.order, ","))
			continue
		}
		out = append(out, d)
	}
	return out
}
