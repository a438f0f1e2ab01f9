package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo libro de movimientos sobre PostgreSQL. Solo INSERT y SELECT.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

const ledgerColumns = `id, transaction_id, type, product_id, batch_id, location_from, location_to, quantity,
	idempotency_key, reference_type, reference_id, notes, created_by, transaction_datetime, created_at`

// Insert usa ON CONFLICT DO NOTHING sin columna de arbitraje: un choque de idempotency_key o de
// transaction_id no aborta la transacción, solo devuelve false.
func (r *LedgerRepo) Insert(ctx context.Context, e *entity.LedgerEntry) (bool, error) {
	query := `INSERT INTO stock_ledger (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT DO NOTHING`
	tag, err := r.q.Exec(ctx, query,
		e.ID, e.TransactionID, e.Type, e.ProductID, e.BatchID, nullable(e.LocationFrom), nullable(e.LocationTo),
		e.Quantity, e.IdempotencyKey, nullable(e.ReferenceType), nullable(e.ReferenceID), nullable(e.Notes),
		nullable(e.CreatedBy), e.TransactionDateTime, e.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert ledger entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *LedgerRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM stock_ledger WHERE idempotency_key = $1`
	e, err := scanLedgerEntry(r.q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry by idempotency key: %w", err)
	}
	return e, nil
}

// ListByKey entradas donde la clave es origen o destino, en orden de registro.
func (r *LedgerRepo) ListByKey(ctx context.Context, key entity.BalanceKey) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM stock_ledger
		WHERE product_id = $1 AND batch_id = $3 AND (location_from = $2 OR location_to = $2)
		ORDER BY created_at, transaction_id`
	return r.list(ctx, query, key.ProductID, key.LocationID, key.BatchID)
}

func (r *LedgerRepo) ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM stock_ledger
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY created_at, transaction_id`
	return r.list(ctx, query, referenceType, referenceID)
}

func (r *LedgerRepo) list(ctx context.Context, query string, args ...any) ([]*entity.LedgerEntry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var list []*entity.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanLedgerEntry(row pgx.Row) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	var from, to, refType, refID, notes, createdBy *string
	err := row.Scan(
		&e.ID, &e.TransactionID, &e.Type, &e.ProductID, &e.BatchID, &from, &to, &e.Quantity,
		&e.IdempotencyKey, &refType, &refID, &notes, &createdBy, &e.TransactionDateTime, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.LocationFrom = deref(from)
	e.LocationTo = deref(to)
	e.ReferenceType = deref(refType)
	e.ReferenceID = deref(refID)
	e.Notes = deref(notes)
	e.CreatedBy = deref(createdBy)
	return &e, nil
}
