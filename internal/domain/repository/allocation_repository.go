package repository

import (
	"context"
	"time"

	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// AllocationRepository puerto de persistencia de asignaciones. Solo lo usa AllocationUseCase.
type AllocationRepository interface {
	Create(ctx context.Context, a *entity.Allocation) error
	// ListActiveByOrderForUpdate asignaciones activas de la orden, bloqueadas.
	ListActiveByOrderForUpdate(ctx context.Context, orderID string) ([]*entity.Allocation, error)
	ListByOrder(ctx context.Context, orderID string) ([]*entity.Allocation, error)
	// ListActiveByProduct asignaciones activas de un material en todas las órdenes, sin bloqueo.
	ListActiveByProduct(ctx context.Context, productID string) ([]*entity.Allocation, error)
	// SetReservedQuantity cambia la cantidad de una asignación activa (recarga o cesión parcial).
	SetReservedQuantity(ctx context.Context, id string, qty decimal.Decimal) error
	// Close cambia el estado de una asignación activa a released o consumed.
	Close(ctx context.Context, id, status string, at time.Time) error
	// SumActiveByKey suma de ReservedQuantity de asignaciones activas sobre un saldo.
	SumActiveByKey(ctx context.Context, key entity.BalanceKey) (decimal.Decimal, error)
}
