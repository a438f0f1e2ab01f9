package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/produccion-api/internal/application/dto"
	"github.com/jhoicas/produccion-api/internal/application/orders"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// OrderHandler maneja las peticiones HTTP de órdenes MO/PO (protegido).
type OrderHandler struct {
	create     *orders.CreateOrderUseCase
	transition *orders.TransitionUseCase
	query      *orders.QueryUseCase
	swap       *orders.SwapUseCase
	authz      orders.Authorizer
}

// NewOrderHandler construye el handler.
func NewOrderHandler(create *orders.CreateOrderUseCase, transition *orders.TransitionUseCase, query *orders.QueryUseCase, swap *orders.SwapUseCase, authz orders.Authorizer) *OrderHandler {
	return &OrderHandler{create: create, transition: transition, query: query, swap: swap, authz: authz}
}

// Create godoc
// @Summary      Crear orden MO/PO en draft
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOrderRequest  true  "kind, product_id, quantity"
// @Success      201   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	kind := entity.OrderKind(strings.ToUpper(in.Kind))
	actor := actorFrom(c)
	if !h.authz.CanPerform(c.Context(), actor, orders.ActionCreate, &entity.Order{Kind: kind}) {
		return forbidden(c)
	}
	order, err := h.create.Create(c.Context(), orders.CreateOrderInput{
		Kind:                kind,
		ProductID:           in.ProductID,
		Quantity:            in.Quantity,
		Priority:            in.Priority,
		PlannedStart:        in.PlannedStart,
		PlannedEnd:          in.PlannedEnd,
		PreferredLocationID: in.PreferredLocationID,
		PreferredBatchID:    in.PreferredBatchID,
		AllowPartial:        in.AllowPartial,
		Notes:               in.Notes,
		CreatedBy:           actor.UserID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOrderResponse(order, h.query.AvailableTransitions(order)))
}

// GetByID godoc
// @Summary      Orden con sus transiciones disponibles
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        order_id  path  string  true  "MO-YYYYMMDD-NNNN / PO-YYYYMMDD-NNNN"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{order_id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	order, err := h.readable(c)
	if err != nil || order == nil {
		return err
	}
	return c.JSON(toOrderResponse(order, h.query.AvailableTransitions(order)))
}

// History godoc
// @Summary      Historial de estados de la orden
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        order_id  path  string  true  "número de orden"
// @Success      200  {array}   dto.StatusHistoryDTO
// @Router       /api/orders/{order_id}/history [get]
func (h *OrderHandler) History(c *fiber.Ctx) error {
	order, err := h.readable(c)
	if err != nil || order == nil {
		return err
	}
	list, err := h.query.History(c.Context(), order.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.StatusHistoryDTO, 0, len(list))
	for _, e := range list {
		out = append(out, toHistoryDTO(e))
	}
	return c.JSON(out)
}

// Transition godoc
// @Summary      Cambiar el estado de una orden
// @Description  Valida la arista, ejecuta el efecto de stock (reserva, liberación, consumo,
//
//	recepción) y registra el historial en una sola transacción.
//
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        order_id  path  string                 true  "número de orden"
// @Param        body      body  dto.TransitionRequest  true  "target_status"
// @Success      200  {object}  dto.TransitionResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{order_id}/transitions [post]
func (h *OrderHandler) Transition(c *fiber.Ctx) error {
	var in dto.TransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.TargetStatus == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "target_status requerido"})
	}
	target := entity.OrderStatus(in.TargetStatus)

	order, err := h.query.Get(c.Context(), c.Params("order_id"))
	if err != nil {
		return writeError(c, err)
	}
	actor := actorFrom(c)
	if !h.authz.CanPerform(c.Context(), actor, orders.TransitionAction(target), order) {
		return forbidden(c)
	}

	received := decimal.Zero
	if in.ReceivedQuantity != nil {
		received = *in.ReceivedQuantity
	}
	res, err := h.transition.Transition(c.Context(), orders.TransitionInput{
		OrderID:          order.OrderID,
		Target:           target,
		ActorID:          actor.UserID,
		Notes:            in.Notes,
		RejectionReason:  in.RejectionReason,
		ReceivedQuantity: received,
		LocationID:       in.LocationID,
		BatchID:          in.BatchID,
		IdempotencyKey:   in.IdempotencyKey,
	})
	if err != nil {
		return writeError(c, err)
	}

	out := dto.TransitionResponse{
		NewStatus:    string(res.Order.Status),
		HistoryEntry: toHistoryDTO(res.History),
		Effect:       res.Effect,
		Replayed:     res.Replayed,
	}
	if len(res.Allocations) > 0 {
		out.Allocations = toAllocationDTOs(res.Allocations)
	}
	if res.Reservation != nil && res.Reservation.Partial() {
		out.Shortfalls = res.Reservation.Shortfalls
	}
	if res.Receipt != nil {
		out.Receipt = toLedgerEntryDTO(res.Receipt.Entry)
	}
	return c.JSON(out)
}

// Requirements godoc
// @Summary      Requerimiento de materia prima de la orden
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        order_id  path  string  true  "número de orden"
// @Success      200  {array}   dto.RequirementDTO
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{order_id}/requirements [get]
func (h *OrderHandler) Requirements(c *fiber.Ctx) error {
	order, err := h.readable(c)
	if err != nil || order == nil {
		return err
	}
	reqs, err := h.query.Requirements(c.Context(), order.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.RequirementDTO, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, dto.RequirementDTO{
			MaterialID:       r.MaterialID,
			RequiredQuantity: r.RequiredQuantity,
			Unit:             r.Unit,
			BaseQuantity:     r.BaseQuantity,
			ScrapAllowance:   r.ScrapAllowance,
			PiecesPerSheet:   r.PiecesPerSheet,
		})
	}
	return c.JSON(out)
}

// Allocations godoc
// @Summary      Resumen de reservas de la orden
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        order_id  path  string  true  "número de orden"
// @Success      200  {object}  dto.AllocationSummaryResponse
// @Router       /api/orders/{order_id}/allocations [get]
func (h *OrderHandler) Allocations(c *fiber.Ctx) error {
	order, err := h.readable(c)
	if err != nil || order == nil {
		return err
	}
	s, err := h.query.Allocations(c.Context(), order.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.AllocationSummaryResponse{
		OrderID:        s.OrderID,
		TotalActive:    s.TotalActive,
		TotalReleased:  s.TotalReleased,
		TotalConsumed:  s.TotalConsumed,
		FullyAllocated: s.FullyAllocated,
		Allocations:    toAllocationDTOs(s.Allocations),
	})
}

// Availability godoc
// @Summary      Verificación en seco de materia prima (no reserva)
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        order_id  path  string  true  "número de orden"
// @Success      200  {object}  dto.AvailabilityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{order_id}/availability [get]
func (h *OrderHandler) Availability(c *fiber.Ctx) error {
	order, err := h.readable(c)
	if err != nil || order == nil {
		return err
	}
	av, err := h.query.Availability(c.Context(), order.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toAvailabilityResponse(av))
}

// Swap godoc
// @Summary      Tomar reservas de MO de menor prioridad
// @Description  Solo cubre lo que el stock libre no alcanza. 409 si no hay nada que ceder.
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        order_id  path  string  true  "número de orden"
// @Success      200  {object}  dto.SwapResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{order_id}/swap [post]
func (h *OrderHandler) Swap(c *fiber.Ctx) error {
	order, err := h.query.Get(c.Context(), c.Params("order_id"))
	if err != nil {
		return writeError(c, err)
	}
	actor := actorFrom(c)
	if !h.authz.CanPerform(c.Context(), actor, orders.ActionSwap, order) {
		return forbidden(c)
	}
	res, err := h.swap.Swap(c.Context(), orders.SwapInput{OrderID: order.OrderID, ActorID: actor.UserID})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSwapResponse(res))
}

// readable carga la orden del path y verifica permiso de lectura. Si devuelve order nil la
// respuesta de error ya está escrita.
func (h *OrderHandler) readable(c *fiber.Ctx) (*entity.Order, error) {
	order, err := h.query.Get(c.Context(), c.Params("order_id"))
	if err != nil {
		return nil, writeError(c, err)
	}
	if !h.authz.CanPerform(c.Context(), actorFrom(c), orders.ActionRead, order) {
		return nil, forbidden(c)
	}
	return order, nil
}
