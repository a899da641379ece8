package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrNoStockAvailable   = errors.New("sin stock disponible para reservar")
	ErrInvalidTransfer    = errors.New("tipo de traslado inválido")
)

// ValidationError señala un campo de entrada malformado o ausente. Nunca se reintenta;
// se devuelve textual al caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validación: campo %q: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError construye un ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientQuantityError una reserva manual (lote explícito) o un incremento de reserva
// excede la disponibilidad. Sin fallback parcial: es el contrato de la selección manual.
type InsufficientQuantityError struct {
	BatchID   string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("cantidad insuficiente: solicitado %s, disponible %s (lote %s)",
		e.Requested, e.Available, e.BatchID)
}

func (e *InsufficientQuantityError) Unwrap() error { return ErrInsufficientStock }

// InvalidStateTransitionError una operación de conteo físico en un estado que no la permite
// (ej. completar un conteo ya completado, reabrir uno no completado).
type InvalidStateTransitionError struct {
	From string
	To   string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("transición de estado inválida: %s -> %s", e.From, e.To)
}

func (e *InvalidStateTransitionError) Unwrap() error { return ErrConflict }
