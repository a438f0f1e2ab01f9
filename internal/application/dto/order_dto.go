package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest body para POST /api/orders.
type CreateOrderRequest struct {
	Kind                string          `json:"kind"` // MO | PO
	ProductID           string          `json:"product_id"`
	Quantity            decimal.Decimal `json:"quantity"`
	Priority            string          `json:"priority,omitempty"`
	PlannedStart        *time.Time      `json:"planned_start,omitempty"`
	PlannedEnd          *time.Time      `json:"planned_end,omitempty"`
	PreferredLocationID string          `json:"preferred_location_id,omitempty"`
	PreferredBatchID    string          `json:"preferred_batch_id,omitempty"`
	AllowPartial        bool            `json:"allow_partial,omitempty"`
	Notes               string          `json:"notes,omitempty"`
}

// OrderResponse orden con sus transiciones disponibles.
type OrderResponse struct {
	ID                   string          `json:"id"`
	OrderID              string          `json:"order_id"`
	Kind                 string          `json:"kind"`
	ProductID            string          `json:"product_id"`
	MaterialID           string          `json:"material_id"`
	Quantity             decimal.Decimal `json:"quantity"`
	ReceivedQuantity     decimal.Decimal `json:"received_quantity"`
	Status               string          `json:"status"`
	HeldFrom             string          `json:"held_from,omitempty"`
	Priority             string          `json:"priority"`
	PlannedStart         *time.Time      `json:"planned_start,omitempty"`
	PlannedEnd           *time.Time      `json:"planned_end,omitempty"`
	PreferredLocationID  string          `json:"preferred_location_id,omitempty"`
	PreferredBatchID     string          `json:"preferred_batch_id,omitempty"`
	AllowPartial         bool            `json:"allow_partial"`
	RejectionReason      string          `json:"rejection_reason,omitempty"`
	CreatedBy            string          `json:"created_by"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	AvailableTransitions []string        `json:"available_transitions"`
}

// TransitionRequest body para POST /api/orders/:order_id/transitions.
// received_quantity, location_id, batch_id e idempotency_key aplican a recepciones de OC.
type TransitionRequest struct {
	TargetStatus     string           `json:"target_status"`
	Notes            string           `json:"notes,omitempty"`
	RejectionReason  string           `json:"rejection_reason,omitempty"`
	ReceivedQuantity *decimal.Decimal `json:"received_quantity,omitempty"`
	LocationID       string           `json:"location_id,omitempty"`
	BatchID          string           `json:"batch_id,omitempty"`
	IdempotencyKey   string           `json:"idempotency_key,omitempty"`
}

// StatusHistoryDTO entrada del historial de estados.
type StatusHistoryDTO struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ChangedBy  string    `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
	Notes      string    `json:"notes,omitempty"`
}

// TransitionResponse resultado de una transición.
type TransitionResponse struct {
	NewStatus    string           `json:"new_status"`
	HistoryEntry StatusHistoryDTO `json:"history_entry"`
	Effect       string           `json:"effect"`
	Allocations  []AllocationDTO  `json:"allocations,omitempty"`
	Shortfalls   interface{}      `json:"shortfalls,omitempty"`
	Receipt      *LedgerEntryDTO  `json:"receipt,omitempty"`
	Replayed     bool             `json:"replayed,omitempty"`
}

// RequirementDTO requerimiento de materia prima de una orden.
type RequirementDTO struct {
	MaterialID       string          `json:"material_id"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	Unit             string          `json:"unit"`
	BaseQuantity     decimal.Decimal `json:"base_quantity"`
	ScrapAllowance   decimal.Decimal `json:"scrap_allowance"`
	PiecesPerSheet   int             `json:"pieces_per_sheet,omitempty"`
}

// AllocationDTO reserva de stock para una orden.
type AllocationDTO struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	ProductID        string          `json:"product_id"`
	LocationID       string          `json:"location_id"`
	BatchID          string          `json:"batch_id,omitempty"`
	ReservedQuantity decimal.Decimal `json:"reserved_quantity"`
	Status           string          `json:"status"`
	AllocatedAt      time.Time       `json:"allocated_at"`
	AllocatedBy      string          `json:"allocated_by"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
}

// AllocationSummaryResponse totales de reserva de una orden.
type AllocationSummaryResponse struct {
	OrderID        string          `json:"order_id"`
	TotalActive    decimal.Decimal `json:"total_active"`
	TotalReleased  decimal.Decimal `json:"total_released"`
	TotalConsumed  decimal.Decimal `json:"total_consumed"`
	FullyAllocated bool            `json:"fully_allocated"`
	Allocations    []AllocationDTO `json:"allocations"`
}

// MaterialAvailabilityDTO disponibilidad de un material para la MO.
type MaterialAvailabilityDTO struct {
	MaterialID    string          `json:"material_id"`
	Required      decimal.Decimal `json:"required"`
	Allocated     decimal.Decimal `json:"allocated"`
	InStock       decimal.Decimal `json:"in_stock"`
	Swappable     decimal.Decimal `json:"swappable"`
	Total         decimal.Decimal `json:"total"`
	Shortage      decimal.Decimal `json:"shortage"`
	Available     bool            `json:"available"`
	SwappableFrom []string        `json:"swappable_from,omitempty"`
}

// AvailabilityResponse verificación en seco de materia prima.
type AvailabilityResponse struct {
	OrderID   string                    `json:"order_id"`
	Available bool                      `json:"available"`
	Materials []MaterialAvailabilityDTO `json:"materials"`
}

// SwapMoveDTO porción de reserva cedida por otra MO.
type SwapMoveDTO struct {
	FromOrderID string          `json:"from_order_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Allocation  AllocationDTO   `json:"allocation"`
}

// SwapResponse resultado de ceder reservas por prioridad.
type SwapResponse struct {
	OrderID    string          `json:"order_id"`
	MaterialID string          `json:"material_id"`
	Required   decimal.Decimal `json:"required"`
	Held       decimal.Decimal `json:"held"`
	Free       decimal.Decimal `json:"free"`
	Swapped    decimal.Decimal `json:"swapped"`
	Moves      []SwapMoveDTO   `json:"moves"`
	Shortfalls interface{}     `json:"shortfalls,omitempty"`
}
