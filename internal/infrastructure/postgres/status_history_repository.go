package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/domain/repository"
)

var _ repository.StatusHistoryRepository = (*StatusHistoryRepo)(nil)

// StatusHistoryRepo historial de estados sobre PostgreSQL. Solo INSERT y SELECT.
type StatusHistoryRepo struct {
	q Querier
}

// NewStatusHistoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStatusHistoryRepository(q Querier) *StatusHistoryRepo {
	return &StatusHistoryRepo{q: q}
}

func (r *StatusHistoryRepo) Append(ctx context.Context, h *entity.StatusHistory) error {
	query := `
		INSERT INTO order_status_history (id, order_id, from_status, to_status, changed_by, changed_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		h.ID, h.OrderID, nullable(string(h.FromStatus)), string(h.ToStatus), nullable(h.ChangedBy), h.ChangedAt, nullable(h.Notes),
	)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

func (r *StatusHistoryRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.StatusHistory, error) {
	query := `
		SELECT id, order_id, from_status, to_status, changed_by, changed_at, notes
		FROM order_status_history WHERE order_id = $1
		ORDER BY changed_at, id`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	var list []*entity.StatusHistory
	for rows.Next() {
		var h entity.StatusHistory
		var from, to string
		var fromPtr, changedBy, notes *string
		if err := rows.Scan(&h.ID, &h.OrderID, &fromPtr, &to, &changedBy, &h.ChangedAt, &notes); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		from = deref(fromPtr)
		h.FromStatus = entity.OrderStatus(from)
		h.ToStatus = entity.OrderStatus(to)
		h.ChangedBy = deref(changedBy)
		h.Notes = deref(notes)
		list = append(list, &h)
	}
	return list, rows.Err()
}
