package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/domain/repository"
	"github.com/jhoicas/produccion-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// BatchPolicy orden en que se consumen los lotes al reservar.
type BatchPolicy string

const (
	BatchPolicyFIFO BatchPolicy = "fifo"
	BatchPolicyLIFO BatchPolicy = "lifo"
)

// Estados del resultado de una reserva.
const (
	ReservationFull    = "full"
	ReservationPartial = "partial"
)

// AllocationUseCase reserva, libera y consume stock para órdenes.
// Es el único que modifica ReservedQuantity.
type AllocationUseCase struct {
	txRunner TxRunner
	repos    Repos
	ledger   *LedgerUseCase
	policy   BatchPolicy
	log      *logger.Logger
	now      func() time.Time
}

// NewAllocationUseCase construye el caso de uso. Una política vacía equivale a FIFO.
func NewAllocationUseCase(txRunner TxRunner, repos Repos, ledger *LedgerUseCase, policy BatchPolicy, log *logger.Logger) *AllocationUseCase {
	if policy != BatchPolicyLIFO {
		policy = BatchPolicyFIFO
	}
	return &AllocationUseCase{txRunner: txRunner, repos: repos, ledger: ledger, policy: policy, log: log, now: time.Now}
}

// ReserveInput orden y requerimientos a reservar.
type ReserveInput struct {
	OrderID             string
	Requirements        []entity.RawMaterialRequirement
	PreferredLocationID string
	PreferredBatchID    string
	ActorID             string
}

// ReservationLine lo pedido y lo reservado de un material.
type ReservationLine struct {
	MaterialID string
	Required   decimal.Decimal
	Reserved   decimal.Decimal
}

// AllocationResult resultado de una reserva. Status es full o partial; Allocations contiene las
// asignaciones creadas o recargadas en esta llamada.
type AllocationResult struct {
	OrderID     string
	Status      string
	Lines       []ReservationLine
	Allocations []*entity.Allocation
	Shortfalls  []domain.Shortfall
}

// Partial indica si quedó algún material sin cubrir.
func (r *AllocationResult) Partial() bool { return len(r.Shortfalls) > 0 }

// AllocationSummary estado de las asignaciones de una orden.
type AllocationSummary struct {
	OrderID        string
	TotalActive    decimal.Decimal
	TotalReleased  decimal.Decimal
	TotalConsumed  decimal.Decimal
	FullyAllocated bool
	Allocations    []*entity.Allocation
}

// Reserve reserva en su propia transacción. Si allowPartial es false cualquier faltante
// deshace la reserva completa y devuelve *domain.InsufficientStockError.
func (uc *AllocationUseCase) Reserve(ctx context.Context, in ReserveInput, allowPartial bool) (*AllocationResult, error) {
	var res *AllocationResult
	err := uc.txRunner.Run(ctx, func(tx Repos) error {
		var err error
		res, err = uc.ReserveInTx(ctx, tx, in)
		if err != nil {
			return err
		}
		if res.Partial() && !allowPartial {
			return &domain.InsufficientStockError{Shortfalls: res.Shortfalls}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ReserveInTx reserva usando la transacción del caller. Lo ya reservado por la orden para un
// material se descuenta del requerimiento, así que repetir la llamada no duplica reservas.
// Devuelve *domain.InsufficientStockError solo si no se pudo reservar nada; un resultado parcial
// lo decide el caller.
func (uc *AllocationUseCase) ReserveInTx(ctx context.Context, tx Repos, in ReserveInput) (*AllocationResult, error) {
	if in.OrderID == "" || len(in.Requirements) == 0 {
		return nil, domain.ErrInvalidInput
	}
	reqs := append([]entity.RawMaterialRequirement(nil), in.Requirements...)
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].MaterialID < reqs[j].MaterialID })
	for _, r := range reqs {
		if r.MaterialID == "" || !r.RequiredQuantity.IsPositive() {
			return nil, fmt.Errorf("%w: requerimiento sin material o con cantidad no positiva", domain.ErrInvalidInput)
		}
	}

	active, err := tx.Allocations.ListActiveByOrderForUpdate(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	already := make(map[string]decimal.Decimal)
	held := make(map[entity.BalanceKey]*entity.Allocation, len(active))
	for _, a := range active {
		already[a.ProductID] = already[a.ProductID].Add(a.ReservedQuantity)
		held[a.Key()] = a
	}

	now := uc.now()
	res := &AllocationResult{OrderID: in.OrderID}
	reservedNow := decimal.Zero
	for _, req := range reqs {
		prior := already[req.MaterialID]
		remaining := req.RequiredQuantity.Sub(prior)
		line := ReservationLine{MaterialID: req.MaterialID, Required: req.RequiredQuantity, Reserved: prior}
		if remaining.IsPositive() {
			candidates, err := tx.Balances.ListAvailableForUpdate(ctx, repository.BalanceFilter{ProductID: req.MaterialID})
			if err != nil {
				return nil, err
			}
			uc.orderCandidates(candidates, in.PreferredLocationID, in.PreferredBatchID)
			for _, b := range candidates {
				if !remaining.IsPositive() {
					break
				}
				avail := b.Available()
				if !avail.IsPositive() {
					continue
				}
				take := decimal.Min(avail, remaining)
				b.ReservedQuantity = b.ReservedQuantity.Add(take)
				if b.ReservedQuantity.GreaterThan(b.CurrentQuantity) {
					return nil, &domain.InsufficientStockError{Shortfalls: []domain.Shortfall{{
						MaterialID: req.MaterialID, LocationID: b.LocationID,
						Required: take, Satisfied: avail, Missing: take.Sub(avail),
					}}}
				}
				b.UpdatedAt = now
				if err := tx.Balances.Update(ctx, b); err != nil {
					return nil, err
				}
				a, err := uc.addReservation(ctx, tx, held, in.OrderID, b.Key(), take, in.ActorID, now)
				if err != nil {
					return nil, err
				}
				res.Allocations = append(res.Allocations, a)
				remaining = remaining.Sub(take)
				line.Reserved = line.Reserved.Add(take)
				reservedNow = reservedNow.Add(take)
			}
		}
		if remaining.IsPositive() {
			res.Shortfalls = append(res.Shortfalls, domain.Shortfall{
				MaterialID: req.MaterialID,
				Required:   req.RequiredQuantity,
				Satisfied:  line.Reserved,
				Missing:    remaining,
			})
		}
		res.Lines = append(res.Lines, line)
	}

	if len(res.Shortfalls) > 0 {
		anything := reservedNow.IsPositive()
		for _, l := range res.Lines {
			if l.Reserved.IsPositive() {
				anything = true
			}
		}
		if !anything {
			return nil, &domain.InsufficientStockError{Shortfalls: res.Shortfalls}
		}
		res.Status = ReservationPartial
		uc.log.Warn().Str("order_id", in.OrderID).Int("shortfalls", len(res.Shortfalls)).Msg("reserva parcial")
	} else {
		res.Status = ReservationFull
	}
	return res, nil
}

// addReservation suma qty a la asignación activa de la orden sobre key, o crea una nueva.
// held indexa las asignaciones activas (ya bloqueadas) de la orden y se actualiza.
func (uc *AllocationUseCase) addReservation(
	ctx context.Context, tx Repos, held map[entity.BalanceKey]*entity.Allocation,
	orderID string, key entity.BalanceKey, qty decimal.Decimal, actorID string, now time.Time,
) (*entity.Allocation, error) {
	if a, ok := held[key]; ok {
		next := a.ReservedQuantity.Add(qty)
		if err := tx.Allocations.SetReservedQuantity(ctx, a.ID, next); err != nil {
			return nil, err
		}
		a.ReservedQuantity = next
		return a, nil
	}
	a := &entity.Allocation{
		ID:               uuid.New().String(),
		OrderID:          orderID,
		ProductID:        key.ProductID,
		LocationID:       key.LocationID,
		BatchID:          key.BatchID,
		ReservedQuantity: qty,
		Status:           entity.AllocationActive,
		AllocatedAt:      now,
		AllocatedBy:      actorID,
	}
	if err := tx.Allocations.Create(ctx, a); err != nil {
		return nil, err
	}
	held[key] = a
	return a, nil
}

// TransferInTx cede qty de una asignación activa a otra orden sobre el mismo saldo. La reserva
// del saldo no cambia: solo cambia de dueño. Si se cede todo, la asignación de origen queda released.
func (uc *AllocationUseCase) TransferInTx(ctx context.Context, tx Repos, from *entity.Allocation, toOrderID string, qty decimal.Decimal, actorID string) (*entity.Allocation, error) {
	if from == nil || from.Status != entity.AllocationActive || toOrderID == "" || toOrderID == from.OrderID {
		return nil, domain.ErrInvalidInput
	}
	if !qty.IsPositive() || qty.GreaterThan(from.ReservedQuantity) {
		return nil, fmt.Errorf("%w: cantidad a ceder fuera de rango", domain.ErrInvalidInput)
	}
	now := uc.now()
	if qty.Equal(from.ReservedQuantity) {
		if err := tx.Allocations.Close(ctx, from.ID, entity.AllocationReleased, now); err != nil {
			return nil, err
		}
		from.Status = entity.AllocationReleased
		from.ClosedAt = &now
	} else {
		rest := from.ReservedQuantity.Sub(qty)
		if err := tx.Allocations.SetReservedQuantity(ctx, from.ID, rest); err != nil {
			return nil, err
		}
		from.ReservedQuantity = rest
	}

	active, err := tx.Allocations.ListActiveByOrderForUpdate(ctx, toOrderID)
	if err != nil {
		return nil, err
	}
	held := make(map[entity.BalanceKey]*entity.Allocation, len(active))
	for _, a := range active {
		held[a.Key()] = a
	}
	to, err := uc.addReservation(ctx, tx, held, toOrderID, from.Key(), qty, actorID, now)
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("from_order", from.OrderID).Str("to_order", toOrderID).Str("product_id", from.ProductID).
		Str("location_id", from.LocationID).Str("batch_id", from.BatchID).Str("quantity", qty.String()).
		Str("actor", actorID).Msg("reserva cedida")
	return to, nil
}

// orderCandidates lote explícito primero, luego ubicación preferida, luego política de lotes.
func (uc *AllocationUseCase) orderCandidates(c []*entity.StockBalance, preferredLocation, preferredBatch string) {
	rank := func(b *entity.StockBalance) int {
		r := 0
		if preferredBatch != "" && b.BatchID != preferredBatch {
			r += 2
		}
		if preferredLocation != "" && b.LocationID != preferredLocation {
			r++
		}
		return r
	}
	sort.SliceStable(c, func(i, j int) bool {
		ri, rj := rank(c[i]), rank(c[j])
		if ri != rj {
			return ri < rj
		}
		if !c[i].BatchReceivedAt.Equal(c[j].BatchReceivedAt) {
			if uc.policy == BatchPolicyLIFO {
				return c[i].BatchReceivedAt.After(c[j].BatchReceivedAt)
			}
			return c[i].BatchReceivedAt.Before(c[j].BatchReceivedAt)
		}
		if c[i].BatchID != c[j].BatchID {
			return c[i].BatchID < c[j].BatchID
		}
		return c[i].LocationID < c[j].LocationID
	})
}

// Release libera las asignaciones activas de la orden en su propia transacción.
func (uc *AllocationUseCase) Release(ctx context.Context, orderID, actorID string) ([]*entity.Allocation, error) {
	var released []*entity.Allocation
	err := uc.txRunner.Run(ctx, func(tx Repos) error {
		var err error
		released, err = uc.ReleaseInTx(ctx, tx, orderID, actorID)
		return err
	})
	return released, err
}

// ReleaseInTx pasa a released todas las asignaciones activas y devuelve lo reservado al disponible.
// Sin asignaciones activas no hace nada.
func (uc *AllocationUseCase) ReleaseInTx(ctx context.Context, tx Repos, orderID, actorID string) ([]*entity.Allocation, error) {
	active, err := uc.lockActive(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	for _, a := range active {
		if err := uc.unreserve(ctx, tx, a, now); err != nil {
			return nil, err
		}
		if err := tx.Allocations.Close(ctx, a.ID, entity.AllocationReleased, now); err != nil {
			return nil, err
		}
		a.Status = entity.AllocationReleased
		a.ClosedAt = &now
	}
	if len(active) > 0 {
		uc.log.Info().Str("order_id", orderID).Str("actor", actorID).Int("allocations", len(active)).Msg("reservas liberadas")
	}
	return active, nil
}

// Consume consume las asignaciones activas de la orden en su propia transacción.
func (uc *AllocationUseCase) Consume(ctx context.Context, orderID, actorID string) ([]*entity.Allocation, error) {
	var consumed []*entity.Allocation
	err := uc.txRunner.Run(ctx, func(tx Repos) error {
		var err error
		consumed, err = uc.ConsumeInTx(ctx, tx, orderID, actorID)
		return err
	})
	return consumed, err
}

// ConsumeInTx por cada asignación activa: libera la reserva, registra un consumo en el libro
// (clave consume:<id>) y la marca consumed.
func (uc *AllocationUseCase) ConsumeInTx(ctx context.Context, tx Repos, orderID, actorID string) ([]*entity.Allocation, error) {
	active, err := uc.lockActive(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	for _, a := range active {
		if err := uc.unreserve(ctx, tx, a, now); err != nil {
			return nil, err
		}
		_, err := uc.ledger.AppendInTx(ctx, tx, AppendInput{
			Type:                entity.LedgerConsumption,
			ProductID:           a.ProductID,
			BatchID:             a.BatchID,
			LocationFrom:        a.LocationID,
			Quantity:            a.ReservedQuantity.Neg(),
			IdempotencyKey:      "consume:" + a.ID,
			ReferenceType:       entity.ReferenceManufacturingOrder,
			ReferenceID:         orderID,
			CreatedBy:           actorID,
			TransactionDateTime: now,
		})
		if err != nil {
			return nil, err
		}
		if err := tx.Allocations.Close(ctx, a.ID, entity.AllocationConsumed, now); err != nil {
			return nil, err
		}
		a.Status = entity.AllocationConsumed
		a.ClosedAt = &now
	}
	if len(active) > 0 {
		uc.log.Info().Str("order_id", orderID).Str("actor", actorID).Int("allocations", len(active)).Msg("reservas consumidas")
	}
	return active, nil
}

// Summary totales por estado de las asignaciones de la orden. requiredByMaterial, si viene,
// se usa para calcular FullyAllocated.
func (uc *AllocationUseCase) Summary(ctx context.Context, orderID string, requiredByMaterial map[string]decimal.Decimal) (*AllocationSummary, error) {
	all, err := uc.repos.Allocations.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s := &AllocationSummary{
		OrderID:       orderID,
		TotalActive:   decimal.Zero,
		TotalReleased: decimal.Zero,
		TotalConsumed: decimal.Zero,
		Allocations:   all,
	}
	covered := make(map[string]decimal.Decimal)
	for _, a := range all {
		switch a.Status {
		case entity.AllocationActive:
			s.TotalActive = s.TotalActive.Add(a.ReservedQuantity)
			covered[a.ProductID] = covered[a.ProductID].Add(a.ReservedQuantity)
		case entity.AllocationReleased:
			s.TotalReleased = s.TotalReleased.Add(a.ReservedQuantity)
		case entity.AllocationConsumed:
			s.TotalConsumed = s.TotalConsumed.Add(a.ReservedQuantity)
			covered[a.ProductID] = covered[a.ProductID].Add(a.ReservedQuantity)
		}
	}
	s.FullyAllocated = len(requiredByMaterial) > 0
	for material, req := range requiredByMaterial {
		if covered[material].LessThan(req) {
			s.FullyAllocated = false
		}
	}
	return s, nil
}

// lockActive asignaciones activas ordenadas por clave de saldo (orden de bloqueo).
func (uc *AllocationUseCase) lockActive(ctx context.Context, tx Repos, orderID string) ([]*entity.Allocation, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidInput
	}
	active, err := tx.Allocations.ListActiveByOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Key().Less(active[j].Key()) })
	return active, nil
}

func (uc *AllocationUseCase) unreserve(ctx context.Context, tx Repos, a *entity.Allocation, now time.Time) error {
	b, err := tx.Balances.GetForUpdate(ctx, a.Key(), now)
	if err != nil {
		return err
	}
	next := b.ReservedQuantity.Sub(a.ReservedQuantity)
	if next.IsNegative() {
		uc.log.Error().Str("allocation_id", a.ID).Str("product_id", a.ProductID).Str("location_id", a.LocationID).
			Str("batch_id", a.BatchID).Str("reserved", b.ReservedQuantity.String()).
			Str("allocation", a.ReservedQuantity.String()).Msg("reserva del saldo menor que la asignación")
		return &domain.IntegrityMismatchError{
			ProductID: a.ProductID, LocationID: a.LocationID, BatchID: a.BatchID,
			CachedCurrent: b.CurrentQuantity, LedgerCurrent: b.CurrentQuantity,
			CachedReserved: b.ReservedQuantity, AllocatedReserve: a.ReservedQuantity,
		}
	}
	b.ReservedQuantity = next
	b.UpdatedAt = now
	return tx.Balances.Update(ctx, b)
}
