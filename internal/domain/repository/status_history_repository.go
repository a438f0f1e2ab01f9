package repository

import (
	"context"

	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

// StatusHistoryRepository historial de estados: solo inserción, nunca se edita ni se borra.
type StatusHistoryRepository interface {
	Append(ctx context.Context, h *entity.StatusHistory) error
	// ListByOrder devuelve el historial en orden cronológico.
	ListByOrder(ctx context.Context, orderID string) ([]*entity.StatusHistory, error)
}
