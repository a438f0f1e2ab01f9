package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/produccion-api/internal/application/dto"
	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

// manualLedgerTypes tipos que se pueden registrar a mano. consumption y production solo
// los genera el ciclo de la MO.
var manualLedgerTypes = map[string]bool{
	entity.LedgerInward:     true,
	entity.LedgerOutward:    true,
	entity.LedgerTransfer:   true,
	entity.LedgerScrap:      true,
	entity.LedgerReturn:     true,
	entity.LedgerAdjustment: true,
}

// StockHandler saldos, libro de movimientos y conciliación (protegido).
type StockHandler struct {
	ledger    *inventory.LedgerUseCase
	reconcile *inventory.ReconcileUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(ledger *inventory.LedgerUseCase, reconcile *inventory.ReconcileUseCase) *StockHandler {
	return &StockHandler{ledger: ledger, reconcile: reconcile}
}

// GetBalance godoc
// @Summary      Saldo de (producto, ubicación, lote)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id   path   string  true   "producto"
// @Param        location_id  path   string  true   "ubicación"
// @Param        batch_id     query  string  false  "lote (vacío = sin lote)"
// @Success      200  {object}  dto.BalanceResponse
// @Router       /api/stock/balances/{product_id}/{location_id} [get]
func (h *StockHandler) GetBalance(c *fiber.Ctx) error {
	v, err := h.ledger.GetBalance(c.Context(), entity.BalanceKey{
		ProductID:  c.Params("product_id"),
		LocationID: c.Params("location_id"),
		BatchID:    c.Query("batch_id"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.BalanceResponse{
		ProductID:  v.ProductID,
		LocationID: v.LocationID,
		BatchID:    v.BatchID,
		Current:    v.Current,
		Reserved:   v.Reserved,
		Available:  v.Available,
	})
}

// ListBalances godoc
// @Summary      Saldos de un producto en todas sus ubicaciones y lotes
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id  path  string  true  "producto"
// @Success      200  {array}  dto.BalanceResponse
// @Router       /api/stock/balances/{product_id} [get]
func (h *StockHandler) ListBalances(c *fiber.Ctx) error {
	list, err := h.ledger.ListBalances(c.Context(), c.Params("product_id"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.BalanceResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toBalanceResponse(b))
	}
	return c.JSON(out)
}

// ListLedger godoc
// @Summary      Movimientos de una referencia (orden u otra)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        reference_type  query  string  true  "mo | po | manual | reconciliation"
// @Param        reference_id    query  string  true  "número de orden u otra referencia"
// @Success      200  {array}  dto.LedgerEntryDTO
// @Router       /api/stock/ledger [get]
func (h *StockHandler) ListLedger(c *fiber.Ctx) error {
	refType, refID := c.Query("reference_type"), c.Query("reference_id")
	if refType == "" || refID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "reference_type y reference_id requeridos"})
	}
	list, err := h.ledger.ListByReference(c.Context(), refType, refID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.LedgerEntryDTO, 0, len(list))
	for _, e := range list {
		out = append(out, *toLedgerEntryDTO(e))
	}
	return c.JSON(out)
}

// AppendLedger godoc
// @Summary      Registrar movimiento en el libro
// @Description  Con idempotency_key repetida responde 200 con la entrada original y duplicate=true.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LedgerAppendRequest  true  "type, product_id, quantity, ubicaciones"
// @Success      201  {object}  dto.LedgerAppendResponse
// @Success      200  {object}  dto.LedgerAppendResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/ledger [post]
func (h *StockHandler) AppendLedger(c *fiber.Ctx) error {
	var in dto.LedgerAppendRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if !manualLedgerTypes[in.Type] {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "type no permitido: " + in.Type})
	}
	if in.ReferenceType == entity.ReferenceReconciliation {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "los ajustes de conciliación se registran con /api/stock/count"})
	}
	refType := in.ReferenceType
	if refType == "" {
		refType = entity.ReferenceManual
	}
	res, err := h.ledger.Append(c.Context(), inventory.AppendInput{
		Type:           in.Type,
		ProductID:      in.ProductID,
		BatchID:        in.BatchID,
		LocationFrom:   in.LocationFrom,
		LocationTo:     in.LocationTo,
		Quantity:       in.Quantity,
		IdempotencyKey: in.IdempotencyKey,
		ReferenceType:  refType,
		ReferenceID:    in.ReferenceID,
		Notes:          in.Notes,
		CreatedBy:      GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	out := dto.LedgerAppendResponse{
		Entry:     *toLedgerEntryDTO(res.Entry),
		Duplicate: res.Duplicate,
		Balances:  make([]dto.BalanceResponse, 0, len(res.Balances)),
	}
	for _, b := range res.Balances {
		out.Balances = append(out.Balances, toBalanceResponse(b))
	}
	status := fiber.StatusCreated
	if res.Duplicate {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(out)
}

// Reconcile godoc
// @Summary      Verificar (o reparar) un saldo contra el libro
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BalanceKeyRequest  true  "clave; repair=true reescribe el saldo"
// @Success      200  {object}  dto.RebuildResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/stock/reconcile [post]
func (h *StockHandler) Reconcile(c *fiber.Ctx) error {
	var in dto.BalanceKeyRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	key := entity.BalanceKey{ProductID: in.ProductID, LocationID: in.LocationID, BatchID: in.BatchID}
	if in.Repair {
		report, err := h.reconcile.Repair(c.Context(), key, GetUserID(c))
		if err != nil {
			return writeError(c, err)
		}
		out := toRebuildResponse(report)
		out.Repaired = !report.Consistent()
		return c.JSON(out)
	}
	report, err := h.reconcile.Rebuild(c.Context(), key)
	if err != nil && !errors.Is(err, domain.ErrIntegrityMismatch) {
		return writeError(c, err)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Code:    "INTEGRITY_MISMATCH",
			Message: err.Error(),
			Details: toRebuildResponse(report),
		})
	}
	return c.JSON(toRebuildResponse(report))
}

// Count godoc
// @Summary      Registrar un conteo físico
// @Description  Ajuste de conciliación por la diferencia entre lo contado y el saldo actual.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockCountRequest  true  "clave y cantidad contada"
// @Success      200  {object}  dto.StockCountResponse
// @Router       /api/stock/count [post]
func (h *StockHandler) Count(c *fiber.Ctx) error {
	var in dto.StockCountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	key := entity.BalanceKey{ProductID: in.ProductID, LocationID: in.LocationID, BatchID: in.BatchID}
	res, err := h.reconcile.StockCount(c.Context(), key, in.Counted, GetUserID(c), in.Notes)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.StockCountResponse{Entry: toLedgerEntryDTO(res.Entry)}
	for _, b := range res.Balances {
		if b.Key() == key {
			out.Balance = toBalanceResponse(b)
		}
	}
	return c.JSON(out)
}
