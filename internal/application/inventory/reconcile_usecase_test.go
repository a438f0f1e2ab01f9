package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/pkg/logger"
)

// Tras una secuencia de movimientos y reservas el recálculo coincide con la caché.
func TestRebuild_CoincideTrasOperaciones(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	ctx := context.Background()
	e.receive(t, locA, "B1", "10", time.Now())
	e.receive(t, locA, "B2", "4", time.Now())
	_, err := e.ledger.Append(ctx, inventory.AppendInput{
		Type: entity.LedgerTransfer, ProductID: wire, BatchID: "B1", LocationFrom: locA, LocationTo: locB, Quantity: d("3"),
	})
	require.NoError(t, err)
	_, err = e.alloc.Reserve(ctx, inventory.ReserveInput{OrderID: "MO-1", Requirements: requirement("MO-1", "8")}, false)
	require.NoError(t, err)
	_, err = e.alloc.Reserve(ctx, inventory.ReserveInput{OrderID: "MO-2", Requirements: requirement("MO-2", "2")}, false)
	require.NoError(t, err)
	_, err = e.alloc.Consume(ctx, "MO-1", "operario")
	require.NoError(t, err)
	_, err = e.alloc.Release(ctx, "MO-2", "planner")
	require.NoError(t, err)

	summary, err := e.reconcile.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Checked)
	assert.Empty(t, summary.Mismatches)

	report, err := e.reconcile.Rebuild(ctx, entity.BalanceKey{ProductID: wire, LocationID: locB, BatchID: "B1"})
	require.NoError(t, err)
	assertDec(t, "3", report.LedgerCurrent)
	assert.Equal(t, 1, report.Entries)
}

func TestRebuild_DescuadreEsAlarmaYRepairCorrige(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	ctx := context.Background()
	e.receive(t, locA, "B1", "10", time.Now())
	key := entity.BalanceKey{ProductID: wire, LocationID: locA, BatchID: "B1"}

	// Corrompe la caché por fuera del libro.
	b, err := e.repos.Balances.Get(ctx, key)
	require.NoError(t, err)
	b.CurrentQuantity = d("12")
	require.NoError(t, e.repos.Balances.Update(ctx, b))

	report, err := e.reconcile.Rebuild(ctx, key)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIntegrityMismatch))
	var ime *domain.IntegrityMismatchError
	require.True(t, errors.As(err, &ime))
	assertDec(t, "12", ime.CachedCurrent)
	assertDec(t, "10", ime.LedgerCurrent)
	require.NotNil(t, report)

	// Rebuild no corrige.
	assertDec(t, "12", e.balance(t, locA, "B1").Current)

	summary, err := e.reconcile.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Len(t, summary.Mismatches, 1)

	_, err = e.reconcile.Repair(ctx, key, "admin")
	require.NoError(t, err)
	assertDec(t, "10", e.balance(t, locA, "B1").Current)
	_, err = e.reconcile.Rebuild(ctx, key)
	assert.NoError(t, err)
}

func TestStockCount_AjusteDeConciliacionPuedeQuedarBajoReservado(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	ctx := context.Background()
	e.receive(t, locA, "B1", "10", time.Now())
	_, err := e.alloc.Reserve(ctx, inventory.ReserveInput{OrderID: "MO-1", Requirements: requirement("MO-1", "8")}, false)
	require.NoError(t, err)
	key := entity.BalanceKey{ProductID: wire, LocationID: locA, BatchID: "B1"}

	res, err := e.reconcile.StockCount(ctx, key, d("6"), "auditor", "conteo mensual")
	require.NoError(t, err)
	require.NotNil(t, res.Entry)
	assert.Equal(t, entity.LedgerAdjustment, res.Entry.Type)
	assert.Equal(t, entity.ReferenceReconciliation, res.Entry.ReferenceType)
	assertDec(t, "-4", res.Entry.Quantity)

	b := e.balance(t, locA, "B1")
	assertDec(t, "6", b.Current)
	assertDec(t, "8", b.Reserved)

	_, err = e.reconcile.Rebuild(ctx, key)
	assert.NoError(t, err)

	// Un ajuste manual con el mismo efecto sí se rechaza.
	_, err = e.ledger.Append(ctx, inventory.AppendInput{
		Type: entity.LedgerAdjustment, ProductID: wire, BatchID: "B1", LocationTo: locA, Quantity: d("-1"),
		ReferenceType: entity.ReferenceManual,
	})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
}

func TestStockCount_SinDiferenciaNoRegistra(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	e.receive(t, locA, "", "5", time.Now())

	res, err := e.reconcile.StockCount(context.Background(), entity.BalanceKey{ProductID: wire, LocationID: locA}, d("5"), "auditor", "")
	require.NoError(t, err)
	assert.Nil(t, res.Entry)
}

type busyLocker struct{}

func (busyLocker) WithLock(context.Context, string, time.Duration, func(context.Context) error) error {
	return domain.ErrConflict
}

func TestReconcileAll_LockOcupado(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	uc := inventory.NewReconcileUseCase(e.tx, e.repos, e.ledger, busyLocker{}, time.Minute, logger.Nop())
	_, err := uc.ReconcileAll(context.Background())
	assert.True(t, errors.Is(err, domain.ErrConflict))
}
