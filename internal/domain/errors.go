package domain

import "errors"

// Taxonomía de errores. Solo ErrValidation y ErrPersistence terminan una
// operación; el resto se absorbe localmente y se ve en conteos o logs.
var (
	// ErrValidation: input mal formado, se reporta antes de despachar trabajo.
	ErrValidation = errors.New("validation error")

	// ErrDataInsufficient: histórico más corto que MinDays → "skip".
	ErrDataInsufficient = errors.New("insufficient history")

	// ErrDetector: el detector falló para un símbolo → "error".
	ErrDetector = errors.New("detector failed")

	// ErrTierUnavailable: tier caliente inaccesible → se trata como miss/no-op.
	ErrTierUnavailable = errors.New("hot tier unavailable")

	// ErrPersistence: tier frío inaccesible o escritura fallida → fatal.
	ErrPersistence = errors.New("persistence failure")
)
