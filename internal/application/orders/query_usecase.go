package orders

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	domaininv "github.com/jhoicas/produccion-api/internal/domain/inventory"
	"github.com/jhoicas/produccion-api/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// QueryUseCase consultas de órdenes: detalle, historial, requerimiento, asignaciones y disponibilidad.
type QueryUseCase struct {
	repos      inventory.Repos
	catalog    Catalog
	calculator *domaininv.RMCalculator
	allocation *inventory.AllocationUseCase
}

// NewQueryUseCase construye el caso de uso.
func NewQueryUseCase(repos inventory.Repos, catalog Catalog, calculator *domaininv.RMCalculator, allocation *inventory.AllocationUseCase) *QueryUseCase {
	return &QueryUseCase{repos: repos, catalog: catalog, calculator: calculator, allocation: allocation}
}

// Get devuelve la orden o domain.ErrNotFound.
func (uc *QueryUseCase) Get(ctx context.Context, orderID string) (*entity.Order, error) {
	order, err := uc.repos.Orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// AvailableTransitions estados a los que puede pasar la orden, ordenados por nombre.
func (uc *QueryUseCase) AvailableTransitions(order *entity.Order) []entity.OrderStatus {
	next := workflow.Allowed(order.Kind, order.Status, order.HeldFrom)
	sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
	return next
}

// History historial cronológico de la orden.
func (uc *QueryUseCase) History(ctx context.Context, orderID string) ([]*entity.StatusHistory, error) {
	if _, err := uc.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return uc.repos.History.ListByOrder(ctx, orderID)
}

// Requirements requerimiento de materia prima. En MO se recalcula con la especificación
// vigente; en PO es lo pendiente por recibir del material comprado.
func (uc *QueryUseCase) Requirements(ctx context.Context, orderID string) ([]entity.RawMaterialRequirement, error) {
	order, err := uc.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return uc.requirements(ctx, order)
}

func (uc *QueryUseCase) requirements(ctx context.Context, order *entity.Order) ([]entity.RawMaterialRequirement, error) {
	if order.Kind == entity.OrderKindPO {
		return []entity.RawMaterialRequirement{{
			OrderID:          order.OrderID,
			MaterialID:       order.ProductID,
			RequiredQuantity: order.OutstandingQuantity(),
			BaseQuantity:     order.OutstandingQuantity(),
			ScrapAllowance:   decimal.Zero,
		}}, nil
	}
	req, err := moRequirement(ctx, uc.catalog, uc.calculator, order)
	if err != nil {
		return nil, err
	}
	return []entity.RawMaterialRequirement{req}, nil
}

// Allocations resumen de asignaciones. FullyAllocated se evalúa contra el requerimiento de la MO;
// si la especificación ya no permite calcularlo queda en false.
func (uc *QueryUseCase) Allocations(ctx context.Context, orderID string) (*inventory.AllocationSummary, error) {
	order, err := uc.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var required map[string]decimal.Decimal
	if order.Kind == entity.OrderKindMO {
		if reqs, err := uc.requirements(ctx, order); err == nil {
			required = make(map[string]decimal.Decimal, len(reqs))
			for _, r := range reqs {
				required[r.MaterialID] = r.RequiredQuantity
			}
		}
	}
	return uc.allocation.Summary(ctx, order.OrderID, required)
}

// MaterialAvailability disponibilidad de un material para una MO.
type MaterialAvailability struct {
	MaterialID    string
	Required      decimal.Decimal
	Allocated     decimal.Decimal // reservado ya por la orden
	InStock       decimal.Decimal // disponible sin reservar
	Swappable     decimal.Decimal // reservado por MO de menor prioridad que podría cederse
	Total         decimal.Decimal
	Shortage      decimal.Decimal
	Available     bool
	SwappableFrom []string
}

// Availability verificación en seco de una MO: no reserva ni bloquea nada.
type Availability struct {
	OrderID   string
	Available bool
	Materials []MaterialAvailability
}

// Availability compara el requerimiento de la MO con lo que ya tiene reservado, el stock libre y
// lo que podría cederle una MO de menor prioridad.
func (uc *QueryUseCase) Availability(ctx context.Context, orderID string) (*Availability, error) {
	order, err := uc.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Kind != entity.OrderKindMO {
		return nil, fmt.Errorf("%w: la disponibilidad de materia prima aplica a MO", domain.ErrInvalidInput)
	}
	reqs, err := uc.requirements(ctx, order)
	if err != nil {
		return nil, err
	}
	allocs, err := uc.repos.Allocations.ListByOrder(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}

	out := &Availability{OrderID: order.OrderID, Available: true}
	for _, r := range reqs {
		m := MaterialAvailability{MaterialID: r.MaterialID, Required: r.RequiredQuantity}
		for _, a := range allocs {
			if a.Status == entity.AllocationActive && a.ProductID == r.MaterialID {
				m.Allocated = m.Allocated.Add(a.ReservedQuantity)
			}
		}
		if m.InStock, err = freeStock(ctx, uc.repos, r.MaterialID); err != nil {
			return nil, err
		}
		candidates, err := swappable(ctx, uc.repos, order, r.MaterialID, false)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		for _, c := range candidates {
			m.Swappable = m.Swappable.Add(c.allocation.ReservedQuantity)
			if !seen[c.order.OrderID] {
				seen[c.order.OrderID] = true
				m.SwappableFrom = append(m.SwappableFrom, c.order.OrderID)
			}
		}
		m.Total = m.Allocated.Add(m.InStock).Add(m.Swappable)
		m.Shortage = decimal.Max(decimal.Zero, m.Required.Sub(m.Total))
		m.Available = !m.Shortage.IsPositive()
		if !m.Available {
			out.Available = false
		}
		out.Materials = append(out.Materials, m)
	}
	return out, nil
}
