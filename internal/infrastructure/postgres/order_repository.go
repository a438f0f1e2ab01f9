package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo implementación de OrderRepository sobre PostgreSQL (usable con pool o tx).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, order_id, kind, product_id, material_id, quantity, received_quantity, status,
	held_from, priority, planned_start, planned_end, preferred_location_id, preferred_batch_id,
	allow_partial, rejection_reason, created_by, created_at, updated_at`

// Create persiste la orden. Un order_id repetido devuelve domain.ErrDuplicate.
func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.q.Exec(ctx, query,
		o.ID, o.OrderID, string(o.Kind), o.ProductID, o.MaterialID, o.Quantity, o.ReceivedQuantity, string(o.Status),
		nullable(string(o.HeldFrom)), o.Priority, o.PlannedStart, o.PlannedEnd,
		nullable(o.PreferredLocationID), nullable(o.PreferredBatchID),
		o.AllowPartial, nullable(o.RejectionReason), nullable(o.CreatedBy), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// GetByOrderID obtiene la orden por su número. nil, nil si no existe.
func (r *OrderRepo) GetByOrderID(ctx context.Context, orderID string) (*entity.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID)
}

// GetForUpdate obtiene la orden y bloquea la fila (SELECT FOR UPDATE).
func (r *OrderRepo) GetForUpdate(ctx context.Context, orderID string) (*entity.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1 FOR UPDATE`, orderID)
}

func (r *OrderRepo) get(ctx context.Context, query, orderID string) (*entity.Order, error) {
	var o entity.Order
	var kind, status string
	var heldFrom, prefLoc, prefBatch, rejection, createdBy *string
	err := r.q.QueryRow(ctx, query, orderID).Scan(
		&o.ID, &o.OrderID, &kind, &o.ProductID, &o.MaterialID, &o.Quantity, &o.ReceivedQuantity, &status,
		&heldFrom, &o.Priority, &o.PlannedStart, &o.PlannedEnd, &prefLoc, &prefBatch,
		&o.AllowPartial, &rejection, &createdBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.Kind = entity.OrderKind(kind)
	o.Status = entity.OrderStatus(status)
	o.HeldFrom = entity.OrderStatus(deref(heldFrom))
	o.PreferredLocationID = deref(prefLoc)
	o.PreferredBatchID = deref(prefBatch)
	o.RejectionReason = deref(rejection)
	o.CreatedBy = deref(createdBy)
	return &o, nil
}

// UpdateState persiste los campos que cambia la máquina de estados.
func (r *OrderRepo) UpdateState(ctx context.Context, o *entity.Order) error {
	query := `
		UPDATE orders SET status = $2, held_from = $3, received_quantity = $4, rejection_reason = $5, updated_at = $6
		WHERE order_id = $1`
	tag, err := r.q.Exec(ctx, query,
		o.OrderID, string(o.Status), nullable(string(o.HeldFrom)), o.ReceivedQuantity, nullable(o.RejectionReason), o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
