package memory

import (
	"context"

	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/domain/repository"
)

// LedgerRepository libro de movimientos en memoria, append-only.
type LedgerRepository struct {
	b binding
}

var _ repository.LedgerRepository = (*LedgerRepository)(nil)

func (r *LedgerRepository) Insert(_ context.Context, e *entity.LedgerEntry) (bool, error) {
	inserted := false
	err := r.b.do(func(st *state) error {
		if e.IdempotencyKey != nil {
			if _, ok := st.byIdemKey[*e.IdempotencyKey]; ok {
				return nil
			}
		}
		if _, ok := st.byTxID[e.TransactionID]; ok {
			return nil
		}
		cp := *e
		st.ledger = append(st.ledger, &cp)
		st.byTxID[e.TransactionID] = struct{}{}
		if e.IdempotencyKey != nil {
			st.byIdemKey[*e.IdempotencyKey] = &cp
		}
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *LedgerRepository) GetByIdempotencyKey(_ context.Context, key string) (*entity.LedgerEntry, error) {
	var out *entity.LedgerEntry
	err := r.b.do(func(st *state) error {
		if e, ok := st.byIdemKey[key]; ok {
			cp := *e
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *LedgerRepository) ListByKey(_ context.Context, key entity.BalanceKey) ([]*entity.LedgerEntry, error) {
	var out []*entity.LedgerEntry
	err := r.b.do(func(st *state) error {
		for _, e := range st.ledger {
			if _, ok := e.Deltas()[key]; ok {
				cp := *e
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

func (r *LedgerRepository) ListByReference(_ context.Context, referenceType, referenceID string) ([]*entity.LedgerEntry, error) {
	var out []*entity.LedgerEntry
	err := r.b.do(func(st *state) error {
		for _, e := range st.ledger {
			if e.ReferenceType == referenceType && e.ReferenceID == referenceID {
				cp := *e
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
