package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de entrada del libro de movimientos de stock.
const (
	LedgerInward      = "inward"
	LedgerOutward     = "outward"
	LedgerTransfer    = "transfer"
	LedgerAdjustment  = "adjustment"
	LedgerConsumption = "consumption"
	LedgerProduction  = "production"
	LedgerScrap       = "scrap"
	LedgerReturn      = "return"
)

// Tipos de referencia del movimiento.
const (
	ReferenceManufacturingOrder = "mo"
	ReferencePurchaseOrder      = "po"
	ReferenceManual             = "manual"
	// ReferenceReconciliation marca ajustes del camino de conciliación autorizado;
	// son los únicos que pueden dejar el saldo por debajo de lo reservado.
	ReferenceReconciliation = "reconciliation"
)

// LedgerEntry entrada inmutable del libro de movimientos. Nunca se actualiza ni se borra:
// las correcciones son entradas nuevas.
type LedgerEntry struct {
	ID                  string
	TransactionID       string
	Type                string
	ProductID           string
	BatchID             string
	LocationFrom        string
	LocationTo          string
	Quantity            decimal.Decimal // con signo según el tipo; transfer siempre positivo
	IdempotencyKey      *string
	ReferenceType       string
	ReferenceID         string
	Notes               string
	CreatedBy           string
	TransactionDateTime time.Time
	CreatedAt           time.Time
}

// IsIncrease tipos que suman stock en LocationTo.
func IsIncrease(t string) bool {
	return t == LedgerInward || t == LedgerProduction || t == LedgerReturn
}

// IsDecrease tipos que restan stock en LocationFrom.
func IsDecrease(t string) bool {
	return t == LedgerOutward || t == LedgerConsumption || t == LedgerScrap
}

// ValidLedgerType indica si el tipo es conocido.
func ValidLedgerType(t string) bool {
	return IsIncrease(t) || IsDecrease(t) || t == LedgerTransfer || t == LedgerAdjustment
}

// Deltas devuelve la variación de CurrentQuantity por cada saldo afectado.
// Es la única regla de aplicación: la usan tanto Append como Rebuild.
func (e *LedgerEntry) Deltas() map[BalanceKey]decimal.Decimal {
	out := make(map[BalanceKey]decimal.Decimal, 2)
	from := BalanceKey{ProductID: e.ProductID, LocationID: e.LocationFrom, BatchID: e.BatchID}
	to := BalanceKey{ProductID: e.ProductID, LocationID: e.LocationTo, BatchID: e.BatchID}
	switch {
	case e.Type == LedgerTransfer:
		out[from] = e.Quantity.Neg()
		out[to] = e.Quantity
	case IsIncrease(e.Type):
		out[to] = e.Quantity
	case IsDecrease(e.Type):
		out[from] = e.Quantity
	case e.Type == LedgerAdjustment:
		if e.LocationTo != "" {
			out[to] = e.Quantity
		} else {
			out[from] = e.Quantity
		}
	}
	return out
}

// DeltaFor variación de la entrada sobre una clave concreta (cero si no la afecta).
func (e *LedgerEntry) DeltaFor(key BalanceKey) decimal.Decimal {
	if d, ok := e.Deltas()[key]; ok {
		return d
	}
	return decimal.Zero
}
