package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

// Store almacenamiento en memoria con semántica transaccional: Run serializa las
// transacciones con un mutex global, trabaja sobre una copia del estado y solo la publica
// si fn termina sin error.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	orders      map[string]*entity.Order
	history     []*entity.StatusHistory
	allocations map[string]*entity.Allocation
	allocOrder  []string
	ledger      []*entity.LedgerEntry
	byIdemKey   map[string]*entity.LedgerEntry
	byTxID      map[string]struct{}
	balances    map[entity.BalanceKey]*entity.StockBalance
}

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{state: &state{
		orders:      map[string]*entity.Order{},
		allocations: map[string]*entity.Allocation{},
		byIdemKey:   map[string]*entity.LedgerEntry{},
		byTxID:      map[string]struct{}{},
		balances:    map[entity.BalanceKey]*entity.StockBalance{},
	}}
}

// Las entradas del libro y el historial son inmutables, así que se comparten entre copias.
func (s *state) clone() *state {
	c := &state{
		orders:      make(map[string]*entity.Order, len(s.orders)),
		history:     append([]*entity.StatusHistory(nil), s.history...),
		allocations: make(map[string]*entity.Allocation, len(s.allocations)),
		allocOrder:  append([]string(nil), s.allocOrder...),
		ledger:      append([]*entity.LedgerEntry(nil), s.ledger...),
		byIdemKey:   make(map[string]*entity.LedgerEntry, len(s.byIdemKey)),
		byTxID:      make(map[string]struct{}, len(s.byTxID)),
		balances:    make(map[entity.BalanceKey]*entity.StockBalance, len(s.balances)),
	}
	for k, o := range s.orders {
		cp := *o
		c.orders[k] = &cp
	}
	for k, a := range s.allocations {
		cp := *a
		c.allocations[k] = &cp
	}
	for k, e := range s.byIdemKey {
		c.byIdemKey[k] = e
	}
	for k := range s.byTxID {
		c.byTxID[k] = struct{}{}
	}
	for k, b := range s.balances {
		cp := *b
		c.balances[k] = &cp
	}
	return c
}

// binding ata los repositorios a una transacción (st != nil) o al estado publicado.
type binding struct {
	store *Store
	st    *state
}

func (b binding) do(fn func(st *state) error) error {
	if b.st != nil {
		return fn(b.st)
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return fn(b.store.state)
}

func (s *Store) repos(st *state) inventory.Repos {
	b := binding{store: s, st: st}
	return inventory.Repos{
		Orders:      &OrderRepository{b: b},
		History:     &StatusHistoryRepository{b: b},
		Allocations: &AllocationRepository{b: b},
		Ledger:      &LedgerRepository{b: b},
		Balances:    &StockBalanceRepository{b: b},
	}
}

// Repos repositorios fuera de transacción: cada llamada es atómica por sí misma.
func (s *Store) Repos() inventory.Repos {
	return s.repos(nil)
}

// TxRunner implementa inventory.TxRunner sobre el Store.
type TxRunner struct {
	store *Store
}

var _ inventory.TxRunner = (*TxRunner)(nil)

// NewTxRunner construye el runner.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn sobre una copia del estado; si fn falla la copia se descarta.
func (r *TxRunner) Run(ctx context.Context, fn func(tx inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	work := r.store.state.clone()
	if err := fn(r.store.repos(work)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.state = work
	return nil
}
