package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una asignación de stock.
const (
	AllocationActive   = "active"
	AllocationReleased = "released"
	AllocationConsumed = "consumed"
)

// Allocation reserva de una porción de stock (producto, ubicación, lote) para una orden.
type Allocation struct {
	ID               string
	OrderID          string
	ProductID        string
	LocationID       string
	BatchID          string
	ReservedQuantity decimal.Decimal
	Status           string
	AllocatedAt      time.Time
	AllocatedBy      string
	ClosedAt         *time.Time
}

// Key clave del saldo sobre el que se reservó.
func (a *Allocation) Key() BalanceKey {
	return BalanceKey{ProductID: a.ProductID, LocationID: a.LocationID, BatchID: a.BatchID}
}
