package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

// quantityScale decimales con que se guardan las cantidades de stock (NUMERIC(18,6)).
const quantityScale = 6

// RMCalculator calcula el requerimiento de materia prima de una orden (servicio de dominio puro).
//
//	coil:  base = cantidad * weight_kg                      (kg)
//	sheet: base = cantidad / piezas_por_hoja                (hojas, se redondea hacia arriba)
//	requerido = base * (1 + scrap_allowance)
//
// DefaultScrapAllowance se aplica cuando la especificación no trae su propio porcentaje.
type RMCalculator struct {
	DefaultScrapAllowance decimal.Decimal
}

// NewRMCalculator construye el calculador con la merma por defecto (fracción, 0.02 = 2 %).
func NewRMCalculator(defaultScrap decimal.Decimal) *RMCalculator {
	return &RMCalculator{DefaultScrapAllowance: defaultScrap}
}

// Compute devuelve el requerimiento para la cantidad de la orden. Determinista: mismas entradas,
// mismo resultado, lo que permite recalcular cuando cambia la versión de la especificación.
func (c *RMCalculator) Compute(orderID string, quantity decimal.Decimal, spec *entity.ProductSpec) (entity.RawMaterialRequirement, error) {
	var req entity.RawMaterialRequirement
	if spec == nil {
		return req, &domain.SpecificationError{Attribute: "specification"}
	}
	if !quantity.IsPositive() {
		return req, domain.ErrInvalidInput
	}
	if spec.MaterialID == "" {
		return req, &domain.SpecificationError{ProductID: spec.ProductID, Attribute: "material_id"}
	}

	scrap := c.DefaultScrapAllowance
	if spec.ScrapAllowance != nil {
		scrap = *spec.ScrapAllowance
	}
	if scrap.IsNegative() {
		return req, domain.ErrInvalidInput
	}
	factor := decimal.NewFromInt(1).Add(scrap)

	req.OrderID = orderID
	req.MaterialID = spec.MaterialID
	req.ScrapAllowance = scrap

	switch spec.MaterialType {
	case entity.MaterialCoil:
		if !present(spec.WeightKg) {
			return req, &domain.SpecificationError{ProductID: spec.ProductID, Attribute: "weight_kg"}
		}
		if !present(spec.WireDiameterMm) {
			return req, &domain.SpecificationError{ProductID: spec.ProductID, Attribute: "wire_diameter_mm"}
		}
		req.Unit = entity.UnitKg
		req.BaseQuantity = quantity.Mul(*spec.WeightKg)
		// Hacia arriba a la escala de almacenamiento: nunca se reserva menos de lo calculado.
		req.RequiredQuantity = req.BaseQuantity.Mul(factor).RoundCeil(quantityScale)
	case entity.MaterialSheet:
		pieces, err := piecesPerSheet(spec)
		if err != nil {
			return req, err
		}
		req.Unit = entity.UnitSheets
		req.PiecesPerSheet = pieces
		req.BaseQuantity = quantity.DivRound(decimal.NewFromInt(int64(pieces)), quantityScale)
		// Hojas completas: no se reserva media hoja.
		req.RequiredQuantity = req.BaseQuantity.Mul(factor).Ceil()
	default:
		return req, &domain.SpecificationError{ProductID: spec.ProductID, Attribute: "material_type"}
	}
	return req, nil
}

// piecesPerSheet piezas que salen de una hoja con un corte en rejilla simple.
func piecesPerSheet(spec *entity.ProductSpec) (int, error) {
	attrs := []struct {
		name string
		v    *decimal.Decimal
	}{
		{"thickness_mm", spec.ThicknessMm},
		{"length_mm", spec.LengthMm},
		{"breadth_mm", spec.BreadthMm},
		{"sheet_length_mm", spec.SheetLengthMm},
		{"sheet_breadth_mm", spec.SheetBreadthMm},
	}
	for _, a := range attrs {
		if !present(a.v) {
			return 0, &domain.SpecificationError{ProductID: spec.ProductID, Attribute: a.name}
		}
	}
	alongLength := spec.SheetLengthMm.Div(*spec.LengthMm).Floor().IntPart()
	alongBreadth := spec.SheetBreadthMm.Div(*spec.BreadthMm).Floor().IntPart()
	pieces := alongLength * alongBreadth
	if pieces <= 0 {
		// la pieza no cabe en la hoja
		return 0, &domain.SpecificationError{ProductID: spec.ProductID, Attribute: "sheet_dimensions"}
	}
	return int(pieces), nil
}

func present(v *decimal.Decimal) bool {
	return v != nil && v.IsPositive()
}
