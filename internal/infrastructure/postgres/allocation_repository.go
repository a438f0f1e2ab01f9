package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.AllocationRepository = (*AllocationRepo)(nil)

// AllocationRepo asignaciones de stock sobre PostgreSQL (usable con pool o tx).
type AllocationRepo struct {
	q Querier
}

// NewAllocationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAllocationRepository(q Querier) *AllocationRepo {
	return &AllocationRepo{q: q}
}

const allocationColumns = `id, order_id, product_id, location_id, batch_id, reserved_quantity, status,
	allocated_at, allocated_by, closed_at`

func (r *AllocationRepo) Create(ctx context.Context, a *entity.Allocation) error {
	query := `INSERT INTO allocations (` + allocationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.OrderID, a.ProductID, a.LocationID, a.BatchID, a.ReservedQuantity, a.Status,
		a.AllocatedAt, nullable(a.AllocatedBy), a.ClosedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create allocation: %w", err)
	}
	return nil
}

// ListActiveByOrderForUpdate bloquea las asignaciones activas de la orden.
func (r *AllocationRepo) ListActiveByOrderForUpdate(ctx context.Context, orderID string) ([]*entity.Allocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM allocations
		WHERE order_id = $1 AND status = 'active'
		ORDER BY product_id, location_id, batch_id, id
		FOR UPDATE`
	return r.list(ctx, query, orderID)
}

func (r *AllocationRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.Allocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM allocations
		WHERE order_id = $1 ORDER BY allocated_at, id`
	return r.list(ctx, query, orderID)
}

func (r *AllocationRepo) ListActiveByProduct(ctx context.Context, productID string) ([]*entity.Allocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM allocations
		WHERE product_id = $1 AND status = 'active'
		ORDER BY allocated_at, id`
	return r.list(ctx, query, productID)
}

// SetReservedQuantity solo sobre asignaciones activas; si no lo está devuelve domain.ErrConflict.
func (r *AllocationRepo) SetReservedQuantity(ctx context.Context, id string, qty decimal.Decimal) error {
	query := `UPDATE allocations SET reserved_quantity = $2 WHERE id = $1 AND status = 'active'`
	tag, err := r.q.Exec(ctx, query, id, qty)
	if err != nil {
		return fmt.Errorf("update allocation quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *AllocationRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Allocation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	var list []*entity.Allocation
	for rows.Next() {
		var a entity.Allocation
		var allocatedBy *string
		if err := rows.Scan(
			&a.ID, &a.OrderID, &a.ProductID, &a.LocationID, &a.BatchID, &a.ReservedQuantity, &a.Status,
			&a.AllocatedAt, &allocatedBy, &a.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		a.AllocatedBy = deref(allocatedBy)
		list = append(list, &a)
	}
	return list, rows.Err()
}

// Close cierra una asignación activa. Si ya no estaba activa devuelve domain.ErrConflict.
func (r *AllocationRepo) Close(ctx context.Context, id, status string, at time.Time) error {
	query := `UPDATE allocations SET status = $2, closed_at = $3 WHERE id = $1 AND status = 'active'`
	tag, err := r.q.Exec(ctx, query, id, status, at)
	if err != nil {
		return fmt.Errorf("close allocation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *AllocationRepo) SumActiveByKey(ctx context.Context, key entity.BalanceKey) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(reserved_quantity), 0) FROM allocations
		WHERE product_id = $1 AND location_id = $2 AND batch_id = $3 AND status = 'active'`
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, key.ProductID, key.LocationID, key.BatchID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum active allocations: %w", err)
	}
	return sum, nil
}
