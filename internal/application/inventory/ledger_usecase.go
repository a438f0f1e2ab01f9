package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// LedgerUseCase libro de movimientos de stock. Es el único que modifica CurrentQuantity:
// cada entrada se persiste junto con la variación de saldo en la misma transacción.
type LedgerUseCase struct {
	txRunner TxRunner
	repos    Repos
	log      *logger.Logger
	now      func() time.Time
	newTxID  func(ledgerType string, at time.Time) string
}

// maxTransactionIDAttempts intentos de generar un transaction_id libre antes de abortar.
const maxTransactionIDAttempts = 5

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(txRunner TxRunner, repos Repos, log *logger.Logger) *LedgerUseCase {
	return &LedgerUseCase{txRunner: txRunner, repos: repos, log: log, now: time.Now, newTxID: NewTransactionID}
}

// AppendInput datos de un movimiento. Quantity lleva signo según el tipo:
// inward/production/return > 0 hacia LocationTo; outward/consumption/scrap < 0 desde LocationFrom;
// transfer > 0 entre dos ubicaciones distintas; adjustment != 0 sobre una sola ubicación.
type AppendInput struct {
	Type                string
	ProductID           string
	BatchID             string
	LocationFrom        string
	LocationTo          string
	Quantity            decimal.Decimal
	IdempotencyKey      string
	ReferenceType       string
	ReferenceID         string
	Notes               string
	CreatedBy           string
	TransactionDateTime time.Time
}

// LedgerResult resultado de Append. Duplicate indica que la clave de idempotencia ya estaba
// registrada: Entry es la entrada original y los saldos no se tocaron.
type LedgerResult struct {
	Entry     *entity.LedgerEntry
	Balances  []*entity.StockBalance
	Duplicate bool
}

// BalanceView saldo consultado.
type BalanceView struct {
	ProductID  string
	LocationID string
	BatchID    string
	Current    decimal.Decimal
	Reserved   decimal.Decimal
	Available  decimal.Decimal
}

// Append registra un movimiento en su propia transacción.
func (uc *LedgerUseCase) Append(ctx context.Context, in AppendInput) (*LedgerResult, error) {
	if err := validateAppend(in); err != nil {
		return nil, err
	}
	var res *LedgerResult
	err := uc.txRunner.Run(ctx, func(tx Repos) error {
		var err error
		res, err = uc.AppendInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Duplicate {
		uc.log.Info().Str("idempotency_key", in.IdempotencyKey).Str("transaction_id", res.Entry.TransactionID).
			Msg("movimiento duplicado, se devuelve el original")
	}
	return res, nil
}

// AppendInTx registra el movimiento usando los repositorios de la transacción del caller
// (transiciones de orden, consumo de asignaciones).
func (uc *LedgerUseCase) AppendInTx(ctx context.Context, tx Repos, in AppendInput) (*LedgerResult, error) {
	if err := validateAppend(in); err != nil {
		return nil, err
	}
	if in.IdempotencyKey != "" {
		existing, err := tx.Ledger.GetByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return uc.duplicate(ctx, tx, existing)
		}
	}

	now := uc.now()
	at := in.TransactionDateTime
	if at.IsZero() {
		at = now
	}
	entry := &entity.LedgerEntry{
		ID:                  uuid.New().String(),
		TransactionID:       uc.newTxID(in.Type, at),
		Type:                in.Type,
		ProductID:           in.ProductID,
		BatchID:             in.BatchID,
		LocationFrom:        in.LocationFrom,
		LocationTo:          in.LocationTo,
		Quantity:            in.Quantity,
		ReferenceType:       in.ReferenceType,
		ReferenceID:         in.ReferenceID,
		Notes:               in.Notes,
		CreatedBy:           in.CreatedBy,
		TransactionDateTime: at,
		CreatedAt:           now,
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		entry.IdempotencyKey = &key
	}

	deltas := entry.Deltas()
	keys := sortedKeys(deltas)
	bypass := entry.Type == entity.LedgerAdjustment && entry.ReferenceType == entity.ReferenceReconciliation

	// Bloquea los saldos siempre en el mismo orden para evitar deadlocks entre transacciones.
	balances := make([]*entity.StockBalance, 0, len(keys))
	for _, k := range keys {
		b, err := tx.Balances.GetForUpdate(ctx, k, at)
		if err != nil {
			return nil, err
		}
		delta := deltas[k]
		next := b.CurrentQuantity.Add(delta)
		if delta.IsNegative() && !bypass && next.LessThan(b.ReservedQuantity) {
			required := delta.Neg()
			available := b.Available()
			if available.IsNegative() {
				available = decimal.Zero
			}
			return nil, &domain.InsufficientStockError{Shortfalls: []domain.Shortfall{{
				MaterialID: k.ProductID,
				LocationID: k.LocationID,
				Required:   required,
				Satisfied:  available,
				Missing:    required.Sub(available),
			}}}
		}
		b.CurrentQuantity = next
		b.UpdatedAt = now
		balances = append(balances, b)
	}

	existing, err := uc.insert(ctx, tx, entry)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Otra transacción registró la misma clave entre la consulta y el insert.
		return uc.duplicate(ctx, tx, existing)
	}

	for _, b := range balances {
		if err := tx.Balances.Update(ctx, b); err != nil {
			return nil, err
		}
	}
	uc.log.Debug().Str("transaction_id", entry.TransactionID).Str("type", entry.Type).
		Str("product_id", entry.ProductID).Str("quantity", entry.Quantity.String()).Msg("movimiento registrado")
	return &LedgerResult{Entry: entry, Balances: balances}, nil
}

// insert persiste la entrada. Si no se insertó y la clave de idempotencia ya existe devuelve
// la entrada original; si no, el choque fue de transaction_id y se reintenta con otro.
func (uc *LedgerUseCase) insert(ctx context.Context, tx Repos, entry *entity.LedgerEntry) (*entity.LedgerEntry, error) {
	for attempt := 1; ; attempt++ {
		inserted, err := tx.Ledger.Insert(ctx, entry)
		if err != nil {
			return nil, err
		}
		if inserted {
			return nil, nil
		}
		if entry.IdempotencyKey != nil {
			existing, err := tx.Ledger.GetByIdempotencyKey(ctx, *entry.IdempotencyKey)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return existing, nil
			}
		}
		if attempt == maxTransactionIDAttempts {
			return nil, fmt.Errorf("transaction_id %s repetido tras %d intentos: %w", entry.TransactionID, attempt, domain.ErrConflict)
		}
		uc.log.Debug().Str("transaction_id", entry.TransactionID).Msg("transaction_id repetido, se genera otro")
		entry.TransactionID = uc.newTxID(entry.Type, entry.TransactionDateTime)
	}
}

func (uc *LedgerUseCase) duplicate(ctx context.Context, tx Repos, existing *entity.LedgerEntry) (*LedgerResult, error) {
	keys := sortedKeys(existing.Deltas())
	balances := make([]*entity.StockBalance, 0, len(keys))
	for _, k := range keys {
		b, err := tx.Balances.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if b != nil {
			balances = append(balances, b)
		}
	}
	return &LedgerResult{Entry: existing, Balances: balances, Duplicate: true}, nil
}

// GetBalance saldo de una clave; si nunca tuvo movimientos devuelve ceros.
func (uc *LedgerUseCase) GetBalance(ctx context.Context, key entity.BalanceKey) (*BalanceView, error) {
	if key.ProductID == "" || key.LocationID == "" {
		return nil, domain.ErrInvalidInput
	}
	b, err := uc.repos.Balances.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = entity.NewStockBalance(key, time.Time{})
	}
	return &BalanceView{
		ProductID:  key.ProductID,
		LocationID: key.LocationID,
		BatchID:    key.BatchID,
		Current:    b.CurrentQuantity,
		Reserved:   b.ReservedQuantity,
		Available:  b.Available(),
	}, nil
}

// ListBalances saldos de un producto en todas sus ubicaciones y lotes.
func (uc *LedgerUseCase) ListBalances(ctx context.Context, productID string) ([]*entity.StockBalance, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.repos.Balances.ListByProduct(ctx, productID)
}

// ListByReference movimientos de una orden u otra referencia.
func (uc *LedgerUseCase) ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.LedgerEntry, error) {
	return uc.repos.Ledger.ListByReference(ctx, referenceType, referenceID)
}

func validateAppend(in AppendInput) error {
	if !entity.ValidLedgerType(in.Type) {
		return fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidInput, in.Type)
	}
	if strings.TrimSpace(in.ProductID) == "" {
		return fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	q := in.Quantity
	switch {
	case entity.IsIncrease(in.Type):
		if !q.IsPositive() || in.LocationTo == "" || in.LocationFrom != "" {
			return fmt.Errorf("%w: %s requiere cantidad positiva y solo location_to", domain.ErrInvalidInput, in.Type)
		}
	case entity.IsDecrease(in.Type):
		if !q.IsNegative() || in.LocationFrom == "" || in.LocationTo != "" {
			return fmt.Errorf("%w: %s requiere cantidad negativa y solo location_from", domain.ErrInvalidInput, in.Type)
		}
	case in.Type == entity.LedgerTransfer:
		if !q.IsPositive() || in.LocationFrom == "" || in.LocationTo == "" || in.LocationFrom == in.LocationTo {
			return fmt.Errorf("%w: transfer requiere cantidad positiva y dos ubicaciones distintas", domain.ErrInvalidInput)
		}
	case in.Type == entity.LedgerAdjustment:
		if q.IsZero() || (in.LocationFrom == "") == (in.LocationTo == "") {
			return fmt.Errorf("%w: adjustment requiere cantidad distinta de cero y una sola ubicación", domain.ErrInvalidInput)
		}
	}
	return nil
}

func sortedKeys(deltas map[entity.BalanceKey]decimal.Decimal) []entity.BalanceKey {
	keys := make([]entity.BalanceKey, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
