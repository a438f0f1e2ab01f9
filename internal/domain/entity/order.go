package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderKind tipo de orden gobernada por la máquina de estados.
type OrderKind string

const (
	OrderKindMO OrderKind = "MO" // orden de manufactura
	OrderKindPO OrderKind = "PO" // orden de compra
)

// Valid indica si el tipo de orden es conocido.
func (k OrderKind) Valid() bool {
	return k == OrderKindMO || k == OrderKindPO
}

// Prioridades de orden.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidPriority indica si la prioridad es una de las admitidas.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// PriorityRank orden relativo de la prioridad (urgent es la más alta). Una prioridad
// desconocida vale 0.
func PriorityRank(p string) int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Order representa una orden de manufactura (MO) o de compra (PO).
// Status solo lo modifica la máquina de estados (TransitionUseCase).
type Order struct {
	ID                  string
	OrderID             string // MO-YYYYMMDD-NNNN / PO-YYYYMMDD-NNNN
	Kind                OrderKind
	ProductID           string // producto terminado (MO) o materia prima (PO)
	MaterialID          string // materia prima consumida por la MO; en PO igual a ProductID
	Quantity            decimal.Decimal
	ReceivedQuantity    decimal.Decimal // solo PO
	Status              OrderStatus
	HeldFrom            OrderStatus // estado previo a on_hold
	Priority            string
	PlannedStart        *time.Time
	PlannedEnd          *time.Time
	PreferredLocationID string
	PreferredBatchID    string
	AllowPartial        bool
	RejectionReason     string
	CreatedBy           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OutstandingQuantity cantidad aún no recibida de una PO.
func (o *Order) OutstandingQuantity() decimal.Decimal {
	rest := o.Quantity.Sub(o.ReceivedQuantity)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// FormatOrderID número legible de la orden: MO-YYYYMMDD-NNNN / PO-YYYYMMDD-NNNN.
// La secuencia se reinicia cada día (UTC, igual que los transaction_id del libro).
func FormatOrderID(kind OrderKind, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", kind, at.UTC().Format("20060102"), seq)
}

// OrderSequenceKey clave del contador diario de números de orden.
func OrderSequenceKey(kind OrderKind, at time.Time) string {
	return string(kind) + "-" + at.UTC().Format("20060102")
}
