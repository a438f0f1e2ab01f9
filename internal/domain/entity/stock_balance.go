package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceKey identifica un saldo. BatchID vacío significa "sin lote".
type BalanceKey struct {
	ProductID  string
	LocationID string
	BatchID    string
}

// Less orden total de claves; define el orden de bloqueo para evitar deadlocks.
func (k BalanceKey) Less(o BalanceKey) bool {
	if k.ProductID != o.ProductID {
		return k.ProductID < o.ProductID
	}
	if k.LocationID != o.LocationID {
		return k.LocationID < o.LocationID
	}
	return k.BatchID < o.BatchID
}

// StockBalance saldo derivado (caché) por producto, ubicación y lote.
// Invariante: Available = Current - Reserved, ambos >= 0.
type StockBalance struct {
	ProductID        string
	LocationID       string
	BatchID          string
	CurrentQuantity  decimal.Decimal
	ReservedQuantity decimal.Decimal
	BatchReceivedAt  time.Time
	UpdatedAt        time.Time
}

// Key devuelve la clave del saldo.
func (b *StockBalance) Key() BalanceKey {
	return BalanceKey{ProductID: b.ProductID, LocationID: b.LocationID, BatchID: b.BatchID}
}

// Available cantidad disponible para reservar.
func (b *StockBalance) Available() decimal.Decimal {
	return b.CurrentQuantity.Sub(b.ReservedQuantity)
}

// NewStockBalance saldo en cero para una clave nueva.
func NewStockBalance(key BalanceKey, at time.Time) *StockBalance {
	return &StockBalance{
		ProductID:        key.ProductID,
		LocationID:       key.LocationID,
		BatchID:          key.BatchID,
		CurrentQuantity:  decimal.Zero,
		ReservedQuantity: decimal.Zero,
		BatchReceivedAt:  at,
		UpdatedAt:        at,
	}
}
