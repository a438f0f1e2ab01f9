package repository

import (
	"context"
	"time"

	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

// BalanceFilter filtro de candidatos para reservar.
type BalanceFilter struct {
	ProductID  string
	LocationID string // opcional: solo esa ubicación
	BatchID    string // opcional: solo ese lote
}

// StockBalanceRepository saldos derivados por (producto, ubicación, lote).
// Usado dentro de transacciones para garantizar consistencia con el libro.
type StockBalanceRepository interface {
	// Get devuelve nil, nil si la clave no existe.
	Get(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error)
	// GetForUpdate bloquea el saldo (SELECT FOR UPDATE); si no existe lo crea en cero con
	// BatchReceivedAt = at antes de bloquearlo.
	GetForUpdate(ctx context.Context, key entity.BalanceKey, at time.Time) (*entity.StockBalance, error)
	// ListAvailableForUpdate saldos con disponible > 0 que cumplen el filtro, bloqueados,
	// ordenados por BatchReceivedAt, lote y ubicación.
	ListAvailableForUpdate(ctx context.Context, f BalanceFilter) ([]*entity.StockBalance, error)
	Update(ctx context.Context, b *entity.StockBalance) error
	ListByProduct(ctx context.Context, productID string) ([]*entity.StockBalance, error)
	ListKeys(ctx context.Context) ([]entity.BalanceKey, error)
}
