package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	domaininv "github.com/jhoicas/produccion-api/internal/domain/inventory"
	"github.com/jhoicas/produccion-api/internal/domain/workflow"
	"github.com/jhoicas/produccion-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// TransitionConfig parámetros de negocio de la máquina de estados.
type TransitionConfig struct {
	AllowPartial      bool   // acepta reservas parciales aunque la orden no lo pida
	ReceivingLocation string // ubicación por defecto de las recepciones de compra
}

// TransitionUseCase máquina de estados de órdenes MO/PO. Cada transición valida la arista,
// ejecuta su efecto de stock, actualiza el estado y agrega el historial en una sola transacción.
type TransitionUseCase struct {
	txRunner   inventory.TxRunner
	catalog    Catalog
	calculator *domaininv.RMCalculator
	allocation *inventory.AllocationUseCase
	ledger     *inventory.LedgerUseCase
	publisher  EventPublisher
	cfg        TransitionConfig
	log        *logger.Logger
	now        func() time.Time
}

// NewTransitionUseCase construye el caso de uso. publisher puede ser nil.
func NewTransitionUseCase(
	txRunner inventory.TxRunner,
	catalog Catalog,
	calculator *domaininv.RMCalculator,
	allocation *inventory.AllocationUseCase,
	ledger *inventory.LedgerUseCase,
	publisher EventPublisher,
	cfg TransitionConfig,
	log *logger.Logger,
) *TransitionUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &TransitionUseCase{
		txRunner:   txRunner,
		catalog:    catalog,
		calculator: calculator,
		allocation: allocation,
		ledger:     ledger,
		publisher:  publisher,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// TransitionInput petición de cambio de estado. ReceivedQuantity, LocationID, BatchID e
// IdempotencyKey solo aplican a recepciones de PO.
type TransitionInput struct {
	OrderID          string
	Target           entity.OrderStatus
	ActorID          string
	Notes            string
	RejectionReason  string
	ReceivedQuantity decimal.Decimal
	LocationID       string
	BatchID          string
	IdempotencyKey   string
}

// TransitionResult estado nuevo y efectos aplicados.
type TransitionResult struct {
	Order       *entity.Order
	History     *entity.StatusHistory
	Effect      string
	Reservation *inventory.AllocationResult
	Allocations []*entity.Allocation
	Receipt     *inventory.LedgerResult
	Replayed    bool // recepción repetida: no se escribió estado ni historial
}

// Transition ejecuta la transición. Si el efecto falla no cambia nada: ni estado, ni historial,
// ni stock.
func (uc *TransitionUseCase) Transition(ctx context.Context, in TransitionInput) (*TransitionResult, error) {
	if in.OrderID == "" || in.Target == "" {
		return nil, domain.ErrInvalidInput
	}
	var res *TransitionResult
	err := uc.txRunner.Run(ctx, func(tx inventory.Repos) error {
		var err error
		res, err = uc.transitionInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("order_id", in.OrderID).Str("target", string(in.Target)).
			Str("actor", in.ActorID).Msg("transición rechazada")
		return nil, err
	}

	h := res.History
	if res.Replayed {
		uc.log.Info().Str("order_id", in.OrderID).Str("idempotency_key", in.IdempotencyKey).
			Msg("recepción ya registrada, se devuelve el resultado original")
		return res, nil
	}
	uc.log.Info().Str("order_id", h.OrderID).Str("from", string(h.FromStatus)).Str("to", string(h.ToStatus)).
		Str("actor", h.ChangedBy).Str("effect", res.Effect).Msg("transición confirmada")
	if err := uc.publisher.PublishOrderEvent(ctx, OrderEvent{
		Type:       EventOrderStatusChanged,
		OrderID:    h.OrderID,
		Kind:       string(res.Order.Kind),
		FromStatus: string(h.FromStatus),
		ToStatus:   string(h.ToStatus),
		ChangedBy:  h.ChangedBy,
		ChangedAt:  h.ChangedAt,
		Notes:      h.Notes,
	}); err != nil {
		uc.log.Warn().Err(err).Str("order_id", h.OrderID).Msg("no se pudo publicar evento de orden")
	}
	return res, nil
}

func (uc *TransitionUseCase) transitionInTx(ctx context.Context, tx inventory.Repos, in TransitionInput) (*TransitionResult, error) {
	order, err := tx.Orders.GetForUpdate(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	from := order.Status
	effect, err := workflow.Resolve(order.Kind, from, in.Target, order.HeldFrom)
	if err != nil {
		return nil, err
	}
	if in.Target == entity.StatusRejected {
		if strings.TrimSpace(in.RejectionReason) == "" {
			return nil, domain.ErrMissingRejectionReason
		}
		order.RejectionReason = in.RejectionReason
	}

	now := uc.now()
	res := &TransitionResult{Effect: effect.String()}
	switch effect {
	case workflow.EffectReserve:
		reservation, err := uc.reserve(ctx, tx, order, in.ActorID)
		if err != nil {
			return nil, err
		}
		res.Reservation = reservation
		res.Allocations = reservation.Allocations
	case workflow.EffectRelease:
		if res.Allocations, err = uc.allocation.ReleaseInTx(ctx, tx, order.OrderID, in.ActorID); err != nil {
			return nil, err
		}
	case workflow.EffectConsume:
		if res.Allocations, err = uc.allocation.ConsumeInTx(ctx, tx, order.OrderID, in.ActorID); err != nil {
			return nil, err
		}
	case workflow.EffectReceive:
		if res.Receipt, err = uc.receive(ctx, tx, order, in, now); err != nil {
			return nil, err
		}
		if res.Receipt != nil && res.Receipt.Duplicate {
			return uc.replayReceipt(ctx, tx, order, in.Target, res)
		}
	case workflow.EffectHold:
		order.HeldFrom = from
	case workflow.EffectResume:
		order.HeldFrom = ""
	}

	order.Status = in.Target
	order.UpdatedAt = now
	if err := tx.Orders.UpdateState(ctx, order); err != nil {
		return nil, err
	}
	notes := in.Notes
	if in.Target == entity.StatusRejected && notes == "" {
		notes = in.RejectionReason
	}
	h := &entity.StatusHistory{
		ID:         uuid.New().String(),
		OrderID:    order.OrderID,
		FromStatus: from,
		ToStatus:   in.Target,
		ChangedBy:  in.ActorID,
		ChangedAt:  now,
		Notes:      notes,
	}
	if err := tx.History.Append(ctx, h); err != nil {
		return nil, err
	}
	res.Order = order
	res.History = h
	return res, nil
}

// reserve calcula el requerimiento de la MO y lo reserva. Un resultado parcial solo se acepta
// si la orden o la configuración lo permiten.
func (uc *TransitionUseCase) reserve(ctx context.Context, tx inventory.Repos, order *entity.Order, actorID string) (*inventory.AllocationResult, error) {
	req, err := moRequirement(ctx, uc.catalog, uc.calculator, order)
	if err != nil {
		return nil, err
	}
	reservation, err := uc.allocation.ReserveInTx(ctx, tx, inventory.ReserveInput{
		OrderID:             order.OrderID,
		Requirements:        []entity.RawMaterialRequirement{req},
		PreferredLocationID: order.PreferredLocationID,
		PreferredBatchID:    order.PreferredBatchID,
		ActorID:             actorID,
	})
	if err != nil {
		return nil, err
	}
	if reservation.Partial() && !order.AllowPartial && !uc.cfg.AllowPartial {
		return nil, &domain.InsufficientStockError{Shortfalls: reservation.Shortfalls}
	}
	return reservation, nil
}

// receive registra la entrada de una recepción de compra. completed sin cantidad recibe
// lo pendiente.
func (uc *TransitionUseCase) receive(ctx context.Context, tx inventory.Repos, order *entity.Order, in TransitionInput, now time.Time) (*inventory.LedgerResult, error) {
	qty := in.ReceivedQuantity
	if qty.IsNegative() {
		return nil, fmt.Errorf("%w: cantidad recibida negativa", domain.ErrInvalidInput)
	}
	if in.Target == entity.StatusPartiallyReceived && !qty.IsPositive() {
		return nil, fmt.Errorf("%w: recepción parcial requiere cantidad positiva", domain.ErrInvalidInput)
	}
	if qty.IsZero() {
		qty = order.OutstandingQuantity()
	}
	if qty.IsZero() {
		return nil, nil
	}
	location := in.LocationID
	if location == "" {
		location = uc.cfg.ReceivingLocation
	}
	if location == "" {
		return nil, fmt.Errorf("%w: location_id requerido para la recepción", domain.ErrInvalidInput)
	}

	prior, err := tx.History.ListByOrder(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	seq := len(prior)
	batch := in.BatchID
	if batch == "" {
		batch = fmt.Sprintf("%s-R%d", order.OrderID, seq)
	}
	key := in.IdempotencyKey
	if key == "" {
		key = fmt.Sprintf("receipt:%s:%d", order.OrderID, seq)
	}
	receipt, err := uc.ledger.AppendInTx(ctx, tx, inventory.AppendInput{
		Type:                entity.LedgerInward,
		ProductID:           order.ProductID,
		BatchID:             batch,
		LocationTo:          location,
		Quantity:            qty,
		IdempotencyKey:      key,
		ReferenceType:       entity.ReferencePurchaseOrder,
		ReferenceID:         order.OrderID,
		Notes:               in.Notes,
		CreatedBy:           in.ActorID,
		TransactionDateTime: now,
	})
	if err != nil {
		return nil, err
	}
	if receipt.Duplicate {
		original := receipt.Entry
		if original.ReferenceType != entity.ReferencePurchaseOrder || original.ReferenceID != order.OrderID ||
			(in.ReceivedQuantity.IsPositive() && !original.Quantity.Equal(in.ReceivedQuantity)) {
			return nil, fmt.Errorf("%w: la clave %s ya registró otra recepción", domain.ErrConflict, key)
		}
		return receipt, nil
	}
	order.ReceivedQuantity = order.ReceivedQuantity.Add(qty)
	return receipt, nil
}

// replayReceipt reintento de una recepción ya registrada: no escribe estado ni historial y
// devuelve la entrada de historial de la recepción original.
func (uc *TransitionUseCase) replayReceipt(ctx context.Context, tx inventory.Repos, order *entity.Order, target entity.OrderStatus, res *TransitionResult) (*TransitionResult, error) {
	if order.Status != target {
		return nil, fmt.Errorf("%w: la recepción ya había llevado la orden a %s", domain.ErrConflict, order.Status)
	}
	history, err := tx.History.ListByOrder(ctx, order.OrderID)
	if err != nil {
		return nil, err
	}
	var original *entity.StatusHistory
	for _, h := range history {
		if h.ToStatus == target && h.ChangedAt.Equal(res.Receipt.Entry.TransactionDateTime) {
			original = h
		}
	}
	if original == nil && len(history) > 0 {
		original = history[len(history)-1]
	}
	if original == nil {
		return nil, fmt.Errorf("%w: orden %s sin historial", domain.ErrConflict, order.OrderID)
	}
	res.Order = order
	res.History = original
	res.Replayed = true
	return res, nil
}
