package memory

import (
	"context"

	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/domain/repository"
)

// OrderRepository órdenes en memoria indexadas por OrderID.
type OrderRepository struct {
	b binding
}

var _ repository.OrderRepository = (*OrderRepository)(nil)

func (r *OrderRepository) Create(_ context.Context, order *entity.Order) error {
	return r.b.do(func(st *state) error {
		if _, ok := st.orders[order.OrderID]; ok {
			return domain.ErrDuplicate
		}
		cp := *order
		st.orders[order.OrderID] = &cp
		return nil
	})
}

func (r *OrderRepository) GetByOrderID(_ context.Context, orderID string) (*entity.Order, error) {
	var out *entity.Order
	err := r.b.do(func(st *state) error {
		if o, ok := st.orders[orderID]; ok {
			cp := *o
			out = &cp
		}
		return nil
	})
	return out, err
}

// GetForUpdate en memoria el bloqueo lo da el mutex de la transacción.
func (r *OrderRepository) GetForUpdate(ctx context.Context, orderID string) (*entity.Order, error) {
	return r.GetByOrderID(ctx, orderID)
}

func (r *OrderRepository) UpdateState(_ context.Context, order *entity.Order) error {
	return r.b.do(func(st *state) error {
		o, ok := st.orders[order.OrderID]
		if !ok {
			return domain.ErrNotFound
		}
		o.Status = order.Status
		o.HeldFrom = order.HeldFrom
		o.ReceivedQuantity = order.ReceivedQuantity
		o.RejectionReason = order.RejectionReason
		o.UpdatedAt = order.UpdatedAt
		return nil
	})
}

// StatusHistoryRepository historial en memoria, solo inserción.
type StatusHistoryRepository struct {
	b binding
}

var _ repository.StatusHistoryRepository = (*StatusHistoryRepository)(nil)

func (r *StatusHistoryRepository) Append(_ context.Context, h *entity.StatusHistory) error {
	return r.b.do(func(st *state) error {
		cp := *h
		st.history = append(st.history, &cp)
		return nil
	})
}

func (r *StatusHistoryRepository) ListByOrder(_ context.Context, orderID string) ([]*entity.StatusHistory, error) {
	var out []*entity.StatusHistory
	err := r.b.do(func(st *state) error {
		for _, h := range st.history {
			if h.OrderID == orderID {
				cp := *h
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
