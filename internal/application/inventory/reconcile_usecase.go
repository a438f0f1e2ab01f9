package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/pkg/logger"
	"github.com/shopspring/decimal"
)

const reconcileLockKey = "produccion:reconcile"

// ReconcileUseCase recalcula saldos desde el libro y las asignaciones activas para detectar
// descuadres. Un descuadre es una alarma: solo Repair reescribe el saldo.
type ReconcileUseCase struct {
	txRunner TxRunner
	repos    Repos
	ledger   *LedgerUseCase
	locker   Locker
	lockTTL  time.Duration
	log      *logger.Logger
	now      func() time.Time
}

// NewReconcileUseCase construye el caso de uso. locker puede ser nil (un solo proceso).
func NewReconcileUseCase(txRunner TxRunner, repos Repos, ledger *LedgerUseCase, locker Locker, lockTTL time.Duration, log *logger.Logger) *ReconcileUseCase {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &ReconcileUseCase{txRunner: txRunner, repos: repos, ledger: ledger, locker: locker, lockTTL: lockTTL, log: log, now: time.Now}
}

// RebuildReport saldo en caché frente al recalculado.
type RebuildReport struct {
	Key              entity.BalanceKey
	CachedCurrent    decimal.Decimal
	CachedReserved   decimal.Decimal
	LedgerCurrent    decimal.Decimal
	AllocatedReserve decimal.Decimal
	Entries          int
}

// Consistent indica que caché y libro coinciden.
func (r *RebuildReport) Consistent() bool {
	return r.CachedCurrent.Equal(r.LedgerCurrent) && r.CachedReserved.Equal(r.AllocatedReserve)
}

func (r *RebuildReport) mismatch() *domain.IntegrityMismatchError {
	return &domain.IntegrityMismatchError{
		ProductID: r.Key.ProductID, LocationID: r.Key.LocationID, BatchID: r.Key.BatchID,
		CachedCurrent: r.CachedCurrent, LedgerCurrent: r.LedgerCurrent,
		CachedReserved: r.CachedReserved, AllocatedReserve: r.AllocatedReserve,
	}
}

// ReconcileSummary resultado de ReconcileAll.
type ReconcileSummary struct {
	Checked    int
	Mismatches []*RebuildReport
}

// Rebuild recalcula el saldo de una clave. Si no coincide con la caché devuelve el reporte
// junto con *domain.IntegrityMismatchError; no corrige nada.
func (uc *ReconcileUseCase) Rebuild(ctx context.Context, key entity.BalanceKey) (*RebuildReport, error) {
	if key.ProductID == "" || key.LocationID == "" {
		return nil, domain.ErrInvalidInput
	}
	var report *RebuildReport
	err := uc.txRunner.Run(ctx, func(tx Repos) error {
		var err error
		report, err = uc.compute(ctx, tx, key, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !report.Consistent() {
		uc.log.Error().Str("product_id", key.ProductID).Str("location_id", key.LocationID).Str("batch_id", key.BatchID).
			Str("cached_current", report.CachedCurrent.String()).Str("ledger_current", report.LedgerCurrent.String()).
			Str("cached_reserved", report.CachedReserved.String()).Str("allocated_reserve", report.AllocatedReserve.String()).
			Msg("descuadre entre saldo y libro de movimientos")
		return report, report.mismatch()
	}
	return report, nil
}

// Repair reescribe el saldo con lo que dicen el libro y las asignaciones activas.
func (uc *ReconcileUseCase) Repair(ctx context.Context, key entity.BalanceKey, actorID string) (*RebuildReport, error) {
	if key.ProductID == "" || key.LocationID == "" {
		return nil, domain.ErrInvalidInput
	}
	var report *RebuildReport
	err := uc.txRunner.Run(ctx, func(tx Repos) error {
		var err error
		report, err = uc.compute(ctx, tx, key, true)
		if err != nil || report.Consistent() {
			return err
		}
		b, err := tx.Balances.GetForUpdate(ctx, key, uc.now())
		if err != nil {
			return err
		}
		b.CurrentQuantity = report.LedgerCurrent
		b.ReservedQuantity = report.AllocatedReserve
		b.UpdatedAt = uc.now()
		return tx.Balances.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	if !report.Consistent() {
		uc.log.Warn().Str("actor", actorID).Str("product_id", key.ProductID).Str("location_id", key.LocationID).
			Str("batch_id", key.BatchID).
			Str("current_before", report.CachedCurrent.String()).Str("current_after", report.LedgerCurrent.String()).
			Str("reserved_before", report.CachedReserved.String()).Str("reserved_after", report.AllocatedReserve.String()).
			Msg("saldo reparado desde el libro")
	}
	return report, nil
}

// StockCount registra un conteo físico: ajuste de conciliación por counted - current.
// Es el único camino que puede dejar el saldo por debajo de lo reservado.
func (uc *ReconcileUseCase) StockCount(ctx context.Context, key entity.BalanceKey, counted decimal.Decimal, actorID, notes string) (*LedgerResult, error) {
	if key.ProductID == "" || key.LocationID == "" || counted.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	var res *LedgerResult
	err := uc.txRunner.Run(ctx, func(tx Repos) error {
		b, err := tx.Balances.GetForUpdate(ctx, key, uc.now())
		if err != nil {
			return err
		}
		diff := counted.Sub(b.CurrentQuantity)
		if diff.IsZero() {
			res = &LedgerResult{Balances: []*entity.StockBalance{b}}
			return nil
		}
		res, err = uc.ledger.AppendInTx(ctx, tx, AppendInput{
			Type:          entity.LedgerAdjustment,
			ProductID:     key.ProductID,
			BatchID:       key.BatchID,
			LocationTo:    key.LocationID,
			Quantity:      diff,
			ReferenceType: entity.ReferenceReconciliation,
			Notes:         notes,
			CreatedBy:     actorID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Entry != nil && res.Balances[0].Available().IsNegative() {
		uc.log.Warn().Str("product_id", key.ProductID).Str("location_id", key.LocationID).Str("batch_id", key.BatchID).
			Str("available", res.Balances[0].Available().String()).Msg("conteo físico deja el saldo por debajo de lo reservado")
	}
	return res, nil
}

// ReconcileAll verifica todas las claves bajo un lock distribuido. Los descuadres se reportan,
// no se corrigen. Devuelve domain.ErrConflict si otra conciliación está en curso.
func (uc *ReconcileUseCase) ReconcileAll(ctx context.Context) (*ReconcileSummary, error) {
	var summary *ReconcileSummary
	run := func(ctx context.Context) error {
		var err error
		summary, err = uc.reconcileAll(ctx)
		return err
	}
	var err error
	if uc.locker != nil {
		err = uc.locker.WithLock(ctx, reconcileLockKey, uc.lockTTL, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, err
	}
	uc.log.Info().Int("checked", summary.Checked).Int("mismatches", len(summary.Mismatches)).Msg("conciliación terminada")
	return summary, nil
}

func (uc *ReconcileUseCase) reconcileAll(ctx context.Context) (*ReconcileSummary, error) {
	keys, err := uc.repos.Balances.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	summary := &ReconcileSummary{}
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, err := uc.Rebuild(ctx, k)
		summary.Checked++
		if err != nil {
			if errors.Is(err, domain.ErrIntegrityMismatch) {
				summary.Mismatches = append(summary.Mismatches, report)
				continue
			}
			return nil, fmt.Errorf("rebuild %s/%s/%s: %w", k.ProductID, k.LocationID, k.BatchID, err)
		}
	}
	return summary, nil
}

// compute suma las variaciones de todas las entradas del libro que tocan la clave y lo
// reservado por asignaciones activas. Con create, el saldo se crea en cero si no existe.
func (uc *ReconcileUseCase) compute(ctx context.Context, tx Repos, key entity.BalanceKey, create bool) (*RebuildReport, error) {
	b, err := tx.Balances.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if b != nil || create {
		// Bloquea el saldo para que ningún movimiento concurrente se cuele entre la lectura
		// del saldo y la del libro.
		if b, err = tx.Balances.GetForUpdate(ctx, key, uc.now()); err != nil {
			return nil, err
		}
	}
	report := &RebuildReport{
		Key:              key,
		CachedCurrent:    decimal.Zero,
		CachedReserved:   decimal.Zero,
		LedgerCurrent:    decimal.Zero,
		AllocatedReserve: decimal.Zero,
	}
	if b != nil {
		report.CachedCurrent = b.CurrentQuantity
		report.CachedReserved = b.ReservedQuantity
	}
	entries, err := tx.Ledger.ListByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		report.LedgerCurrent = report.LedgerCurrent.Add(e.DeltaFor(key))
	}
	report.Entries = len(entries)
	report.AllocatedReserve, err = tx.Allocations.SumActiveByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return report, nil
}
