package repository

import (
	"context"

	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

// LedgerRepository libro de movimientos append-only. No existen métodos de actualización ni borrado.
type LedgerRepository interface {
	// Insert persiste la entrada. Si ya existe otra con la misma IdempotencyKey o el mismo
	// TransactionID devuelve inserted=false sin error (la unicidad la garantiza la base de datos).
	Insert(ctx context.Context, e *entity.LedgerEntry) (inserted bool, err error)
	// GetByIdempotencyKey devuelve nil, nil si la clave no se ha registrado.
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.LedgerEntry, error)
	// ListByKey entradas que afectan al saldo (como origen o destino), en orden de registro.
	ListByKey(ctx context.Context, key entity.BalanceKey) ([]*entity.LedgerEntry, error)
	ListByReference(ctx context.Context, referenceType, referenceID string) ([]*entity.LedgerEntry, error)
}
