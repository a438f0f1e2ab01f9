package repository

import (
	"context"

	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

// OrderRepository puerto de persistencia para órdenes MO/PO.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	// GetByOrderID busca por el identificador legible (MO-.../PO-...). Devuelve nil, nil si no existe.
	GetByOrderID(ctx context.Context, orderID string) (*entity.Order, error)
	// GetForUpdate igual que GetByOrderID pero bloquea la fila (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, orderID string) (*entity.Order, error)
	// UpdateState persiste estado, HeldFrom, ReceivedQuantity y RejectionReason.
	UpdateState(ctx context.Context, order *entity.Order) error
}
