package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/infrastructure/memory"
	"github.com/jhoicas/produccion-api/pkg/logger"
)

const (
	wire = "RM-WIRE-2MM"
	locA = "L1"
	locB = "L2"
)

type env struct {
	store     *memory.Store
	tx        *memory.TxRunner
	repos     inventory.Repos
	ledger    *inventory.LedgerUseCase
	alloc     *inventory.AllocationUseCase
	reconcile *inventory.ReconcileUseCase
}

func newEnv(policy inventory.BatchPolicy) *env {
	store := memory.NewStore()
	tx := memory.NewTxRunner(store)
	repos := store.Repos()
	log := logger.Nop()
	ledger := inventory.NewLedgerUseCase(tx, repos, log)
	return &env{
		store:     store,
		tx:        tx,
		repos:     repos,
		ledger:    ledger,
		alloc:     inventory.NewAllocationUseCase(tx, repos, ledger, policy, log),
		reconcile: inventory.NewReconcileUseCase(tx, repos, ledger, nil, 0, log),
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// receive registra una entrada de stock en la clave dada.
func (e *env) receive(t *testing.T, location, batch, qty string, at time.Time) {
	t.Helper()
	_, err := e.ledger.Append(context.Background(), inventory.AppendInput{
		Type:                entity.LedgerInward,
		ProductID:           wire,
		BatchID:             batch,
		LocationTo:          location,
		Quantity:            d(qty),
		ReferenceType:       entity.ReferenceManual,
		CreatedBy:           "almacen",
		TransactionDateTime: at,
	})
	require.NoError(t, err)
}

func (e *env) balance(t *testing.T, location, batch string) *inventory.BalanceView {
	t.Helper()
	b, err := e.ledger.GetBalance(context.Background(), entity.BalanceKey{ProductID: wire, LocationID: location, BatchID: batch})
	require.NoError(t, err)
	return b
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "esperado %s, obtenido %s", want, got.String())
}

func requirement(orderID, qty string) []entity.RawMaterialRequirement {
	return []entity.RawMaterialRequirement{{OrderID: orderID, MaterialID: wire, RequiredQuantity: d(qty), Unit: entity.UnitKg}}
}
