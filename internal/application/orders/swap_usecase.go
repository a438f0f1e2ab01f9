package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	domaininv "github.com/jhoicas/produccion-api/internal/domain/inventory"
	"github.com/jhoicas/produccion-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// EventAllocationsSwapped reservas cedidas entre MO por prioridad.
const EventAllocationsSwapped = "order.allocations_swapped"

// swapStatuses estados de MO cuyas reservas pueden entrar o salir de una cesión: aprobadas y
// aún sin iniciar producción.
var swapStatuses = map[entity.OrderStatus]bool{
	entity.StatusGMApproved:  true,
	entity.StatusRMAllocated: true,
}

// SwapUseCase cede reservas de MO de menor prioridad a una MO de mayor prioridad cuando el stock
// libre no alcanza. La reserva de los saldos no cambia, solo de qué orden es.
type SwapUseCase struct {
	txRunner   inventory.TxRunner
	catalog    Catalog
	calculator *domaininv.RMCalculator
	allocation *inventory.AllocationUseCase
	publisher  EventPublisher
	log        *logger.Logger
	now        func() time.Time
}

// NewSwapUseCase construye el caso de uso. publisher puede ser nil.
func NewSwapUseCase(
	txRunner inventory.TxRunner,
	catalog Catalog,
	calculator *domaininv.RMCalculator,
	allocation *inventory.AllocationUseCase,
	publisher EventPublisher,
	log *logger.Logger,
) *SwapUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &SwapUseCase{
		txRunner:   txRunner,
		catalog:    catalog,
		calculator: calculator,
		allocation: allocation,
		publisher:  publisher,
		log:        log,
		now:        time.Now,
	}
}

// SwapInput MO que necesita el material.
type SwapInput struct {
	OrderID string
	ActorID string
}

// SwapMove porción cedida desde otra MO.
type SwapMove struct {
	FromOrderID string
	Allocation  *entity.Allocation // asignación de la MO destino que recibió la porción
	Quantity    decimal.Decimal
}

// SwapResult resultado de la cesión. Shortfalls queda vacío si lo cedido más el stock libre
// cubre el requerimiento.
type SwapResult struct {
	OrderID    string
	MaterialID string
	Required   decimal.Decimal
	Held       decimal.Decimal // reservado por la MO antes de la cesión
	Free       decimal.Decimal // disponible sin reservar
	Swapped    decimal.Decimal
	Moves      []SwapMove
	Shortfalls []domain.Shortfall
}

// Swap toma reservas de MO de menor prioridad (primero la menor prioridad, luego la más antigua)
// hasta cubrir lo que el stock libre no alcanza. Si no hay nada que ceder devuelve
// *domain.InsufficientStockError.
func (uc *SwapUseCase) Swap(ctx context.Context, in SwapInput) (*SwapResult, error) {
	if in.OrderID == "" {
		return nil, domain.ErrInvalidInput
	}
	var res *SwapResult
	err := uc.txRunner.Run(ctx, func(tx inventory.Repos) error {
		var err error
		res, err = uc.swapInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(res.Moves) == 0 {
		return res, nil
	}

	sources := make([]string, 0, len(res.Moves))
	seen := make(map[string]bool)
	for _, m := range res.Moves {
		if !seen[m.FromOrderID] {
			seen[m.FromOrderID] = true
			sources = append(sources, m.FromOrderID)
		}
	}
	uc.log.Info().Str("order_id", res.OrderID).Strs("from_orders", sources).Str("quantity", res.Swapped.String()).
		Str("actor", in.ActorID).Msg("reservas cedidas por prioridad")
	at := uc.now()
	events := []OrderEvent{{
		Type: EventAllocationsSwapped, OrderID: res.OrderID, Kind: string(entity.OrderKindMO),
		ChangedBy: in.ActorID, ChangedAt: at, Notes: "recibe reservas de " + strings.Join(sources, ", "),
	}}
	for _, src := range sources {
		events = append(events, OrderEvent{
			Type: EventAllocationsSwapped, OrderID: src, Kind: string(entity.OrderKindMO),
			ChangedBy: in.ActorID, ChangedAt: at, Notes: "cede reservas a " + res.OrderID,
		})
	}
	for _, ev := range events {
		if err := uc.publisher.PublishOrderEvent(ctx, ev); err != nil {
			uc.log.Warn().Err(err).Str("order_id", ev.OrderID).Msg("no se pudo publicar evento de orden")
		}
	}
	return res, nil
}

func (uc *SwapUseCase) swapInTx(ctx context.Context, tx inventory.Repos, in SwapInput) (*SwapResult, error) {
	target, err := tx.Orders.GetForUpdate(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, domain.ErrNotFound
	}
	if target.Kind != entity.OrderKindMO {
		return nil, fmt.Errorf("%w: solo las MO reciben reservas cedidas", domain.ErrInvalidInput)
	}
	if !swapStatuses[target.Status] {
		return nil, fmt.Errorf("%w: la orden %s está en %s", domain.ErrConflict, target.OrderID, target.Status)
	}
	req, err := moRequirement(ctx, uc.catalog, uc.calculator, target)
	if err != nil {
		return nil, err
	}

	res := &SwapResult{OrderID: target.OrderID, MaterialID: req.MaterialID, Required: req.RequiredQuantity}
	active, err := tx.Allocations.ListActiveByOrderForUpdate(ctx, target.OrderID)
	if err != nil {
		return nil, err
	}
	for _, a := range active {
		if a.ProductID == req.MaterialID {
			res.Held = res.Held.Add(a.ReservedQuantity)
		}
	}
	if res.Free, err = freeStock(ctx, tx, req.MaterialID); err != nil {
		return nil, err
	}
	missing := req.RequiredQuantity.Sub(res.Held).Sub(res.Free)
	if !missing.IsPositive() {
		return res, nil
	}

	candidates, err := swappable(ctx, tx, target, req.MaterialID, true)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if !missing.IsPositive() {
			break
		}
		take := decimal.Min(c.allocation.ReservedQuantity, missing)
		moved, err := uc.allocation.TransferInTx(ctx, tx, c.allocation, target.OrderID, take, in.ActorID)
		if err != nil {
			return nil, err
		}
		res.Moves = append(res.Moves, SwapMove{FromOrderID: c.order.OrderID, Allocation: moved, Quantity: take})
		res.Swapped = res.Swapped.Add(take)
		missing = missing.Sub(take)
	}

	if missing.IsPositive() {
		short := domain.Shortfall{
			MaterialID: req.MaterialID,
			Required:   req.RequiredQuantity,
			Satisfied:  req.RequiredQuantity.Sub(missing),
			Missing:    missing,
		}
		if len(res.Moves) == 0 {
			return nil, &domain.InsufficientStockError{Shortfalls: []domain.Shortfall{short}}
		}
		res.Shortfalls = []domain.Shortfall{short}
	}
	return res, nil
}

// swapCandidate asignación activa de otra MO que puede cederse.
type swapCandidate struct {
	order      *entity.Order
	allocation *entity.Allocation
}

// swappable asignaciones activas del material en MO de menor prioridad que target y aún sin
// iniciar, ordenadas de menor a mayor prioridad y de la más antigua a la más nueva. Con lock las
// órdenes y sus asignaciones quedan bloqueadas (órdenes en orden de número).
func swappable(ctx context.Context, repos inventory.Repos, target *entity.Order, materialID string, lock bool) ([]swapCandidate, error) {
	all, err := repos.Allocations.ListActiveByProduct(ctx, materialID)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[string][]*entity.Allocation)
	for _, a := range all {
		if a.OrderID != target.OrderID {
			byOrder[a.OrderID] = append(byOrder[a.OrderID], a)
		}
	}
	ids := make([]string, 0, len(byOrder))
	for id := range byOrder {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rank := entity.PriorityRank(target.Priority)
	var out []swapCandidate
	for _, id := range ids {
		get := repos.Orders.GetByOrderID
		if lock {
			get = repos.Orders.GetForUpdate
		}
		o, err := get(ctx, id)
		if err != nil {
			return nil, err
		}
		if o == nil || o.Kind != entity.OrderKindMO || !swapStatuses[o.Status] || entity.PriorityRank(o.Priority) >= rank {
			continue
		}
		allocs := byOrder[id]
		if lock {
			locked, err := repos.Allocations.ListActiveByOrderForUpdate(ctx, id)
			if err != nil {
				return nil, err
			}
			allocs = allocs[:0]
			for _, a := range locked {
				if a.ProductID == materialID {
					allocs = append(allocs, a)
				}
			}
		}
		for _, a := range allocs {
			out = append(out, swapCandidate{order: o, allocation: a})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := entity.PriorityRank(out[i].order.Priority), entity.PriorityRank(out[j].order.Priority)
		if ri != rj {
			return ri < rj
		}
		if !out[i].allocation.AllocatedAt.Equal(out[j].allocation.AllocatedAt) {
			return out[i].allocation.AllocatedAt.Before(out[j].allocation.AllocatedAt)
		}
		return out[i].allocation.ID < out[j].allocation.ID
	})
	return out, nil
}

// freeStock disponible sin reservar del material en todas las ubicaciones y lotes.
func freeStock(ctx context.Context, repos inventory.Repos, materialID string) (decimal.Decimal, error) {
	balances, err := repos.Balances.ListByProduct(ctx, materialID)
	if err != nil {
		return decimal.Zero, err
	}
	free := decimal.Zero
	for _, b := range balances {
		if avail := b.Available(); avail.IsPositive() {
			free = free.Add(avail)
		}
	}
	return free, nil
}
