package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// Taxonomía del motor de conciliación de órdenes.
	ErrOrderConstraint     = errors.New("la cantidad excede lo pendiente de la orden")
	ErrProductNotInOrder   = errors.New("el producto no pertenece a esta orden")
	ErrPreconditionMissing = errors.New("falta una condición previa")
	ErrPersistence         = errors.New("falla de persistencia")
	ErrNoRowsInserted      = errors.New("no rows inserted")
	ErrPartialRPC          = errors.New("algunas líneas no se conciliaron en el backend")
	ErrCommitInProgress    = errors.New("ya hay una confirmación en curso")
)
