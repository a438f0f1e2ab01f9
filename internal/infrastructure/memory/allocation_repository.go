package memory

import (
	"context"
	"time"

	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// AllocationRepository asignaciones en memoria, en orden de creación.
type AllocationRepository struct {
	b binding
}

var _ repository.AllocationRepository = (*AllocationRepository)(nil)

func (r *AllocationRepository) Create(_ context.Context, a *entity.Allocation) error {
	return r.b.do(func(st *state) error {
		if _, ok := st.allocations[a.ID]; ok {
			return domain.ErrDuplicate
		}
		cp := *a
		st.allocations[a.ID] = &cp
		st.allocOrder = append(st.allocOrder, a.ID)
		return nil
	})
}

func (r *AllocationRepository) ListActiveByOrderForUpdate(ctx context.Context, orderID string) ([]*entity.Allocation, error) {
	return r.list(orderID, true)
}

func (r *AllocationRepository) ListByOrder(_ context.Context, orderID string) ([]*entity.Allocation, error) {
	return r.list(orderID, false)
}

func (r *AllocationRepository) ListActiveByProduct(_ context.Context, productID string) ([]*entity.Allocation, error) {
	var out []*entity.Allocation
	err := r.b.do(func(st *state) error {
		for _, id := range st.allocOrder {
			a := st.allocations[id]
			if a.ProductID == productID && a.Status == entity.AllocationActive {
				cp := *a
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

func (r *AllocationRepository) SetReservedQuantity(_ context.Context, id string, qty decimal.Decimal) error {
	return r.b.do(func(st *state) error {
		a, ok := st.allocations[id]
		if !ok {
			return domain.ErrNotFound
		}
		if a.Status != entity.AllocationActive || !qty.IsPositive() {
			return domain.ErrConflict
		}
		a.ReservedQuantity = qty
		return nil
	})
}

func (r *AllocationRepository) list(orderID string, onlyActive bool) ([]*entity.Allocation, error) {
	var out []*entity.Allocation
	err := r.b.do(func(st *state) error {
		for _, id := range st.allocOrder {
			a := st.allocations[id]
			if a.OrderID != orderID || (onlyActive && a.Status != entity.AllocationActive) {
				continue
			}
			cp := *a
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

func (r *AllocationRepository) Close(_ context.Context, id, status string, at time.Time) error {
	return r.b.do(func(st *state) error {
		a, ok := st.allocations[id]
		if !ok {
			return domain.ErrNotFound
		}
		if a.Status != entity.AllocationActive {
			return domain.ErrConflict
		}
		a.Status = status
		closed := at
		a.ClosedAt = &closed
		return nil
	})
}

func (r *AllocationRepository) SumActiveByKey(_ context.Context, key entity.BalanceKey) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.b.do(func(st *state) error {
		for _, a := range st.allocations {
			if a.Status == entity.AllocationActive && a.Key() == key {
				sum = sum.Add(a.ReservedQuantity)
			}
		}
		return nil
	})
	return sum, err
}
