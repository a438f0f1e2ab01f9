package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/domain/repository"
)

// StockBalanceRepository saldos en memoria por (producto, ubicación, lote).
type StockBalanceRepository struct {
	b binding
}

var _ repository.StockBalanceRepository = (*StockBalanceRepository)(nil)

func (r *StockBalanceRepository) Get(_ context.Context, key entity.BalanceKey) (*entity.StockBalance, error) {
	var out *entity.StockBalance
	err := r.b.do(func(st *state) error {
		if b, ok := st.balances[key]; ok {
			cp := *b
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *StockBalanceRepository) GetForUpdate(_ context.Context, key entity.BalanceKey, at time.Time) (*entity.StockBalance, error) {
	var out *entity.StockBalance
	err := r.b.do(func(st *state) error {
		b, ok := st.balances[key]
		if !ok {
			b = entity.NewStockBalance(key, at)
			st.balances[key] = b
		}
		cp := *b
		out = &cp
		return nil
	})
	return out, err
}

func (r *StockBalanceRepository) ListAvailableForUpdate(_ context.Context, f repository.BalanceFilter) ([]*entity.StockBalance, error) {
	var out []*entity.StockBalance
	err := r.b.do(func(st *state) error {
		for _, b := range st.balances {
			if b.ProductID != f.ProductID ||
				(f.LocationID != "" && b.LocationID != f.LocationID) ||
				(f.BatchID != "" && b.BatchID != f.BatchID) ||
				!b.Available().IsPositive() {
				continue
			}
			cp := *b
			out = append(out, &cp)
		}
		return nil
	})
	sortBalances(out)
	return out, err
}

func (r *StockBalanceRepository) Update(_ context.Context, b *entity.StockBalance) error {
	return r.b.do(func(st *state) error {
		if _, ok := st.balances[b.Key()]; !ok {
			return domain.ErrNotFound
		}
		cp := *b
		st.balances[b.Key()] = &cp
		return nil
	})
}

func (r *StockBalanceRepository) ListByProduct(_ context.Context, productID string) ([]*entity.StockBalance, error) {
	var out []*entity.StockBalance
	err := r.b.do(func(st *state) error {
		for _, b := range st.balances {
			if b.ProductID == productID {
				cp := *b
				out = append(out, &cp)
			}
		}
		return nil
	})
	sortBalances(out)
	return out, err
}

func (r *StockBalanceRepository) ListKeys(_ context.Context) ([]entity.BalanceKey, error) {
	var out []entity.BalanceKey
	err := r.b.do(func(st *state) error {
		for k := range st.balances {
			out = append(out, k)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, err
}

// sortBalances mismo orden que la consulta SQL: recepción del lote, lote, ubicación.
func sortBalances(bs []*entity.StockBalance) {
	sort.Slice(bs, func(i, j int) bool {
		if !bs[i].BatchReceivedAt.Equal(bs[j].BatchReceivedAt) {
			return bs[i].BatchReceivedAt.Before(bs[j].BatchReceivedAt)
		}
		if bs[i].BatchID != bs[j].BatchID {
			return bs[i].BatchID < bs[j].BatchID
		}
		return bs[i].LocationID < bs[j].LocationID
	})
}
