package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas salvo decimal).
var (
	ErrNotFound                = errors.New("recurso no encontrado")
	ErrInvalidInput            = errors.New("entrada inválida")
	ErrDuplicate               = errors.New("recurso duplicado")
	ErrForbidden               = errors.New("acceso denegado")
	ErrConflict                = errors.New("conflicto con el estado actual")
	ErrInsufficientStock       = errors.New("stock insuficiente")
	ErrInvalidTransition       = errors.New("transición de estado inválida")
	ErrMissingRejectionReason  = errors.New("motivo de rechazo requerido")
	ErrIncompleteSpecification = errors.New("especificación de producto incompleta")
	ErrIntegrityMismatch       = errors.New("descuadre entre libro de movimientos y saldos")
)

// TransitionError detalla una transición rechazada por la tabla de estados.
type TransitionError struct {
	Kind string
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s %s -> %s", ErrInvalidTransition.Error(), e.Kind, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Shortfall faltante de un material: lo pedido, lo que se pudo cubrir y la diferencia.
// LocationID solo se informa cuando el faltante es de un saldo concreto (salidas del libro).
type Shortfall struct {
	MaterialID string          `json:"material_id"`
	LocationID string          `json:"location_id,omitempty"`
	Required   decimal.Decimal `json:"required"`
	Satisfied  decimal.Decimal `json:"satisfied"`
	Missing    decimal.Decimal `json:"missing"`
}

// InsufficientStockError lleva el faltante por material para que el caller decida
// si reintenta, acepta parcial o escala.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	if len(e.Shortfalls) == 0 {
		return ErrInsufficientStock.Error()
	}
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s faltan %s de %s", s.MaterialID, s.Missing.String(), s.Required.String()))
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// SpecificationError indica qué atributo falta para calcular el requerimiento.
type SpecificationError struct {
	ProductID string
	Attribute string
}

func (e *SpecificationError) Error() string {
	return fmt.Sprintf("%s: producto %s sin %s", ErrIncompleteSpecification.Error(), e.ProductID, e.Attribute)
}

func (e *SpecificationError) Is(target error) bool { return target == ErrIncompleteSpecification }

// IntegrityMismatchError diferencia entre el saldo en caché y el recalculado desde el libro.
type IntegrityMismatchError struct {
	ProductID        string
	LocationID       string
	BatchID          string
	CachedCurrent    decimal.Decimal
	LedgerCurrent    decimal.Decimal
	CachedReserved   decimal.Decimal
	AllocatedReserve decimal.Decimal
}

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("%s: %s/%s/%s current %s vs libro %s, reserved %s vs asignaciones %s",
		ErrIntegrityMismatch.Error(), e.ProductID, e.LocationID, e.BatchID,
		e.CachedCurrent.String(), e.LedgerCurrent.String(),
		e.CachedReserved.String(), e.AllocatedReserve.String())
}

func (e *IntegrityMismatchError) Is(target error) bool { return target == ErrIntegrityMismatch }
