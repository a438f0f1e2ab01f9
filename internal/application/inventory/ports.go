package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/produccion-api/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción (o al pool, para lecturas).
type Repos struct {
	Orders      repository.OrderRepository
	History     repository.StatusHistoryRepository
	Allocations repository.AllocationRepository
	Ledger      repository.LedgerRepository
	Balances    repository.StockBalanceRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback y no queda nada persistido.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx Repos) error) error
}

// Locker lock distribuido para procesos que no deben correr en paralelo (conciliación).
// Devuelve domain.ErrConflict si otro proceso tiene el lock.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}
