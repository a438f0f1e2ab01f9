package entity

// OrderStatus estado de una orden. El conjunto válido depende del tipo (ver domain/workflow).
type OrderStatus string

const (
	StatusDraft      OrderStatus = "draft"
	StatusSubmitted  OrderStatus = "submitted"
	StatusGMApproved OrderStatus = "gm_approved"
	StatusCancelled  OrderStatus = "cancelled"
	StatusCompleted  OrderStatus = "completed"

	// MO
	StatusRMAllocated OrderStatus = "rm_allocated"
	StatusInProgress  OrderStatus = "in_progress"
	StatusOnHold      OrderStatus = "on_hold"

	// PO
	StatusGMCreatedPO       OrderStatus = "gm_created_po"
	StatusVendorConfirmed   OrderStatus = "vendor_confirmed"
	StatusPartiallyReceived OrderStatus = "partially_received"
	StatusRejected          OrderStatus = "rejected"
)
