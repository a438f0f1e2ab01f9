package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceResponse saldo de una clave (producto, ubicación, lote).
type BalanceResponse struct {
	ProductID  string          `json:"product_id"`
	LocationID string          `json:"location_id"`
	BatchID    string          `json:"batch_id,omitempty"`
	Current    decimal.Decimal `json:"current"`
	Reserved   decimal.Decimal `json:"reserved"`
	Available  decimal.Decimal `json:"available"`
}

// LedgerAppendRequest body para POST /api/stock/ledger.
type LedgerAppendRequest struct {
	Type           string          `json:"type"`
	ProductID      string          `json:"product_id"`
	BatchID        string          `json:"batch_id,omitempty"`
	LocationFrom   string          `json:"location_from,omitempty"`
	LocationTo     string          `json:"location_to,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	ReferenceType  string          `json:"reference_type,omitempty"`
	ReferenceID    string          `json:"reference_id,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// LedgerEntryDTO entrada del libro de movimientos.
type LedgerEntryDTO struct {
	ID                  string          `json:"id"`
	TransactionID       string          `json:"transaction_id"`
	Type                string          `json:"type"`
	ProductID           string          `json:"product_id"`
	BatchID             string          `json:"batch_id,omitempty"`
	LocationFrom        string          `json:"location_from,omitempty"`
	LocationTo          string          `json:"location_to,omitempty"`
	Quantity            decimal.Decimal `json:"quantity"`
	IdempotencyKey      string          `json:"idempotency_key,omitempty"`
	ReferenceType       string          `json:"reference_type,omitempty"`
	ReferenceID         string          `json:"reference_id,omitempty"`
	Notes               string          `json:"notes,omitempty"`
	CreatedBy           string          `json:"created_by"`
	TransactionDateTime time.Time       `json:"transaction_datetime"`
}

// LedgerAppendResponse entrada registrada (o la original si la clave estaba repetida) y los
// saldos que tocó.
type LedgerAppendResponse struct {
	Entry     LedgerEntryDTO    `json:"entry"`
	Duplicate bool              `json:"duplicate"`
	Balances  []BalanceResponse `json:"balances"`
}

// BalanceKeyRequest clave de saldo en el body (reconcile).
type BalanceKeyRequest struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	BatchID    string `json:"batch_id,omitempty"`
	Repair     bool   `json:"repair,omitempty"`
}

// RebuildResponse comparación caché vs libro de una clave.
type RebuildResponse struct {
	ProductID        string          `json:"product_id"`
	LocationID       string          `json:"location_id"`
	BatchID          string          `json:"batch_id,omitempty"`
	CachedCurrent    decimal.Decimal `json:"cached_current"`
	LedgerCurrent    decimal.Decimal `json:"ledger_current"`
	CachedReserved   decimal.Decimal `json:"cached_reserved"`
	AllocatedReserve decimal.Decimal `json:"allocated_reserve"`
	Entries          int             `json:"entries"`
	Consistent       bool            `json:"consistent"`
	Repaired         bool            `json:"repaired"`
}

// StockCountRequest body para POST /api/stock/count.
type StockCountRequest struct {
	ProductID  string          `json:"product_id"`
	LocationID string          `json:"location_id"`
	BatchID    string          `json:"batch_id,omitempty"`
	Counted    decimal.Decimal `json:"counted"`
	Notes      string          `json:"notes,omitempty"`
}

// StockCountResponse ajuste registrado por el conteo; Entry nil si no hubo diferencia.
type StockCountResponse struct {
	Entry   *LedgerEntryDTO `json:"entry,omitempty"`
	Balance BalanceResponse `json:"balance"`
}
