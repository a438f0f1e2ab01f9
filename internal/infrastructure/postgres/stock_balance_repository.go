package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/domain/repository"
)

var _ repository.StockBalanceRepository = (*StockBalanceRepo)(nil)

// StockBalanceRepo saldos por (producto, ubicación, lote) sobre PostgreSQL (usable con pool o tx).
type StockBalanceRepo struct {
	q Querier
}

// NewStockBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockBalanceRepository(q Querier) *StockBalanceRepo {
	return &StockBalanceRepo{q: q}
}

const balanceColumns = `product_id, location_id, batch_id, current_quantity, reserved_quantity, batch_received_at, updated_at`

// Get obtiene el saldo. nil, nil si la clave no existe.
func (r *StockBalanceRepo) Get(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM stock_balances
		WHERE product_id = $1 AND location_id = $2 AND batch_id = $3`
	b, err := scanBalance(r.q.QueryRow(ctx, query, key.ProductID, key.LocationID, key.BatchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock balance: %w", err)
	}
	return b, nil
}

// GetForUpdate crea la fila en cero si no existe y la bloquea (SELECT FOR UPDATE).
func (r *StockBalanceRepo) GetForUpdate(ctx context.Context, key entity.BalanceKey, at time.Time) (*entity.StockBalance, error) {
	insert := `
		INSERT INTO stock_balances (` + balanceColumns + `)
		VALUES ($1, $2, $3, 0, 0, $4, $4)
		ON CONFLICT (product_id, location_id, batch_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, key.ProductID, key.LocationID, key.BatchID, at); err != nil {
		return nil, fmt.Errorf("ensure stock balance: %w", err)
	}
	query := `SELECT ` + balanceColumns + ` FROM stock_balances
		WHERE product_id = $1 AND location_id = $2 AND batch_id = $3
		FOR UPDATE`
	b, err := scanBalance(r.q.QueryRow(ctx, query, key.ProductID, key.LocationID, key.BatchID))
	if err != nil {
		return nil, fmt.Errorf("get stock balance for update: %w", err)
	}
	return b, nil
}

// ListAvailableForUpdate bloquea los saldos con disponible > 0 en orden de clave, para que dos
// reservas concurrentes tomen los locks en el mismo orden.
func (r *StockBalanceRepo) ListAvailableForUpdate(ctx context.Context, f repository.BalanceFilter) ([]*entity.StockBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM stock_balances
		WHERE product_id = $1
		  AND ($2 = '' OR location_id = $2)
		  AND ($3 = '' OR batch_id = $3)
		  AND current_quantity - reserved_quantity > 0
		ORDER BY location_id, batch_id
		FOR UPDATE`
	list, err := r.list(ctx, query, f.ProductID, f.LocationID, f.BatchID)
	if err != nil {
		return nil, err
	}
	sortByReceipt(list)
	return list, nil
}

// Update persiste cantidades de un saldo ya bloqueado.
func (r *StockBalanceRepo) Update(ctx context.Context, b *entity.StockBalance) error {
	query := `
		UPDATE stock_balances SET current_quantity = $4, reserved_quantity = $5, updated_at = $6
		WHERE product_id = $1 AND location_id = $2 AND batch_id = $3`
	tag, err := r.q.Exec(ctx, query, b.ProductID, b.LocationID, b.BatchID, b.CurrentQuantity, b.ReservedQuantity, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update stock balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *StockBalanceRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.StockBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM stock_balances
		WHERE product_id = $1 ORDER BY batch_received_at, batch_id, location_id`
	return r.list(ctx, query, productID)
}

func (r *StockBalanceRepo) ListKeys(ctx context.Context) ([]entity.BalanceKey, error) {
	rows, err := r.q.Query(ctx, `SELECT product_id, location_id, batch_id FROM stock_balances ORDER BY 1, 2, 3`)
	if err != nil {
		return nil, fmt.Errorf("list stock balance keys: %w", err)
	}
	defer rows.Close()
	var keys []entity.BalanceKey
	for rows.Next() {
		var k entity.BalanceKey
		if err := rows.Scan(&k.ProductID, &k.LocationID, &k.BatchID); err != nil {
			return nil, fmt.Errorf("scan stock balance key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *StockBalanceRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockBalance, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock balances: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock balance: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func scanBalance(row pgx.Row) (*entity.StockBalance, error) {
	var b entity.StockBalance
	if err := row.Scan(&b.ProductID, &b.LocationID, &b.BatchID, &b.CurrentQuantity, &b.ReservedQuantity, &b.BatchReceivedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func sortByReceipt(list []*entity.StockBalance) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].BatchReceivedAt.Equal(list[j].BatchReceivedAt) {
			return list[i].BatchReceivedAt.Before(list[j].BatchReceivedAt)
		}
		if list[i].BatchID != list[j].BatchID {
			return list[i].BatchID < list[j].BatchID
		}
		return list[i].LocationID < list[j].LocationID
	})
}
