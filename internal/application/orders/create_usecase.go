package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// CreateOrderUseCase alta de órdenes MO/PO en estado draft.
type CreateOrderUseCase struct {
	txRunner  inventory.TxRunner
	catalog   Catalog
	ids       IDGenerator
	publisher EventPublisher
	log       *logger.Logger
	now       func() time.Time
}

// NewCreateOrderUseCase construye el caso de uso. publisher puede ser nil.
func NewCreateOrderUseCase(txRunner inventory.TxRunner, catalog Catalog, ids IDGenerator, publisher EventPublisher, log *logger.Logger) *CreateOrderUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &CreateOrderUseCase{txRunner: txRunner, catalog: catalog, ids: ids, publisher: publisher, log: log, now: time.Now}
}

// CreateOrderInput datos de alta. En PO, ProductID es la materia prima comprada.
type CreateOrderInput struct {
	Kind                entity.OrderKind
	ProductID           string
	Quantity            decimal.Decimal
	Priority            string
	PlannedStart        *time.Time
	PlannedEnd          *time.Time
	PreferredLocationID string
	PreferredBatchID    string
	AllowPartial        bool
	Notes               string
	CreatedBy           string
}

// Create valida, asigna número y guarda la orden en draft junto con su primera entrada de historial.
func (uc *CreateOrderUseCase) Create(ctx context.Context, in CreateOrderInput) (*entity.Order, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: tipo de orden %q", domain.ErrInvalidInput, in.Kind)
	}
	if strings.TrimSpace(in.ProductID) == "" || !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: product_id y cantidad positiva requeridos", domain.ErrInvalidInput)
	}
	if in.Priority == "" {
		in.Priority = entity.PriorityMedium
	}
	if !entity.ValidPriority(in.Priority) {
		return nil, fmt.Errorf("%w: prioridad %q", domain.ErrInvalidInput, in.Priority)
	}
	if in.PlannedStart != nil && in.PlannedEnd != nil && in.PlannedEnd.Before(*in.PlannedStart) {
		return nil, fmt.Errorf("%w: planned_end anterior a planned_start", domain.ErrInvalidInput)
	}

	materialID := in.ProductID
	if in.Kind == entity.OrderKindMO {
		spec, err := uc.catalog.GetSpecification(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		if spec == nil {
			return nil, domain.ErrNotFound
		}
		if spec.MaterialID == "" {
			return nil, &domain.SpecificationError{ProductID: in.ProductID, Attribute: "material_id"}
		}
		materialID = spec.MaterialID
	}

	now := uc.now()
	orderID, err := uc.ids.Next(ctx, in.Kind, now)
	if err != nil {
		return nil, fmt.Errorf("generar número de orden: %w", err)
	}
	order := &entity.Order{
		ID:                  uuid.New().String(),
		OrderID:             orderID,
		Kind:                in.Kind,
		ProductID:           in.ProductID,
		MaterialID:          materialID,
		Quantity:            in.Quantity,
		ReceivedQuantity:    decimal.Zero,
		Status:              entity.StatusDraft,
		Priority:            in.Priority,
		PlannedStart:        in.PlannedStart,
		PlannedEnd:          in.PlannedEnd,
		PreferredLocationID: in.PreferredLocationID,
		PreferredBatchID:    in.PreferredBatchID,
		AllowPartial:        in.AllowPartial,
		CreatedBy:           in.CreatedBy,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	err = uc.txRunner.Run(ctx, func(tx inventory.Repos) error {
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}
		return tx.History.Append(ctx, &entity.StatusHistory{
			ID:        uuid.New().String(),
			OrderID:   order.OrderID,
			ToStatus:  entity.StatusDraft,
			ChangedBy: in.CreatedBy,
			ChangedAt: now,
			Notes:     in.Notes,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			uc.log.Error().Str("order_id", orderID).Msg("número de orden repetido")
		}
		return nil, err
	}

	uc.log.Info().Str("order_id", order.OrderID).Str("kind", string(order.Kind)).Str("product_id", order.ProductID).
		Str("quantity", order.Quantity.String()).Msg("orden creada")
	if err := uc.publisher.PublishOrderEvent(ctx, OrderEvent{
		Type: EventOrderCreated, OrderID: order.OrderID, Kind: string(order.Kind),
		ToStatus: string(order.Status), ChangedBy: in.CreatedBy, ChangedAt: now, Notes: in.Notes,
	}); err != nil {
		uc.log.Warn().Err(err).Str("order_id", order.OrderID).Msg("no se pudo publicar evento de orden")
	}
	return order, nil
}
