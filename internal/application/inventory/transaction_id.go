package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

var transactionPrefixes = map[string]string{
	entity.LedgerInward:      "INW",
	entity.LedgerOutward:     "OUT",
	entity.LedgerTransfer:    "TRF",
	entity.LedgerAdjustment:  "ADJ",
	entity.LedgerConsumption: "CONS",
	entity.LedgerProduction:  "PROD",
	entity.LedgerScrap:       "SCR",
	entity.LedgerReturn:      "RET",
}

// NewTransactionID genera PREFIX-YYYYMMDD-HHMMSS-XXXX con sufijo aleatorio. Dos movimientos del
// mismo segundo pueden repetirlo; LedgerUseCase genera otro si el índice único lo rechaza.
func NewTransactionID(ledgerType string, at time.Time) string {
	prefix, ok := transactionPrefixes[ledgerType]
	if !ok {
		prefix = "TXN"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return prefix + "-" + at.UTC().Format("20060102-150405") + "-" + suffix
}
