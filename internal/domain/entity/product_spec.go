package entity

import "github.com/shopspring/decimal"

// Tipos de material.
const (
	MaterialCoil  = "coil"
	MaterialSheet = "sheet"
)

// ProductSpec campos de especificación leídos del catálogo (solo lectura).
// Los punteros nulos representan atributos ausentes.
type ProductSpec struct {
	ProductID      string
	MaterialID     string // materia prima asociada
	MaterialType   string // coil | sheet
	WeightKg       *decimal.Decimal
	WireDiameterMm *decimal.Decimal
	ThicknessMm    *decimal.Decimal
	LengthMm       *decimal.Decimal
	BreadthMm      *decimal.Decimal
	SheetLengthMm  *decimal.Decimal
	SheetBreadthMm *decimal.Decimal
	ScrapAllowance *decimal.Decimal // fracción: 0.1 = 10 %
	SpecVersion    int
}
