package entity

import "github.com/shopspring/decimal"

// Unidades de requerimiento.
const (
	UnitKg     = "kg"
	UnitSheets = "sheets"
)

// RawMaterialRequirement valor derivado: no se persiste, se recalcula desde orden + especificación.
type RawMaterialRequirement struct {
	OrderID          string
	MaterialID       string
	RequiredQuantity decimal.Decimal
	Unit             string
	BaseQuantity     decimal.Decimal
	ScrapAllowance   decimal.Decimal
	PiecesPerSheet   int // solo sheet
}
