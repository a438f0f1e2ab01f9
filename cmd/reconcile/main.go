// Command reconcile recalcula los saldos de stock desde el libro de movimientos.
//
// Sin flags verifica todas las claves y termina con código 1 si hay descuadres.
// Con -product y -location verifica una sola clave; -repair además reescribe el saldo.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/produccion-api/internal/infrastructure/redis"
	"github.com/jhoicas/produccion-api/pkg/config"
	"github.com/jhoicas/produccion-api/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	product := flag.String("product", "", "producto de la clave a verificar")
	location := flag.String("location", "", "ubicación de la clave a verificar")
	batch := flag.String("batch", "", "lote de la clave (vacío = sin lote)")
	repair := flag.Bool("repair", false, "reescribir el saldo desde el libro si no cuadra")
	actor := flag.String("actor", "reconcile-cli", "usuario que queda registrado en la reparación")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	var locker inventory.Locker
	if cfg.Redis.Enabled() {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		locker = infraredis.NewLocker(rdb)
	} else {
		log.Warn().Msg("sin REDIS_ADDRESS: la conciliación corre sin lock distribuido")
	}

	txRunner := postgres.NewTxRunner(pool)
	repos := postgres.NewRepos(pool)
	ledger := inventory.NewLedgerUseCase(txRunner, repos, log)
	uc := inventory.NewReconcileUseCase(txRunner, repos, ledger, locker, cfg.Reconcile.LockTTL, log)

	if *product == "" && *location == "" {
		summary, err := uc.ReconcileAll(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				log.Warn().Err(err).Msg("otra conciliación está en curso")
				return 2
			}
			log.Fatal().Err(err).Msg("conciliación")
		}
		for _, r := range summary.Mismatches {
			log.Error().Str("product_id", r.Key.ProductID).Str("location_id", r.Key.LocationID).Str("batch_id", r.Key.BatchID).
				Str("cached_current", r.CachedCurrent.String()).Str("ledger_current", r.LedgerCurrent.String()).
				Msg("descuadre")
		}
		if len(summary.Mismatches) > 0 {
			return 1
		}
		return 0
	}

	key := entity.BalanceKey{ProductID: *product, LocationID: *location, BatchID: *batch}
	if *repair {
		report, err := uc.Repair(ctx, key, *actor)
		if err != nil {
			log.Fatal().Err(err).Msg("reparar saldo")
		}
		log.Info().Bool("repaired", !report.Consistent()).Str("current", report.LedgerCurrent.String()).
			Str("reserved", report.AllocatedReserve.String()).Int("entries", report.Entries).Msg("saldo verificado")
		return 0
	}
	report, err := uc.Rebuild(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrIntegrityMismatch) {
		log.Fatal().Err(err).Msg("verificar saldo")
	}
	log.Info().Bool("consistent", report.Consistent()).Str("cached_current", report.CachedCurrent.String()).
		Str("ledger_current", report.LedgerCurrent.String()).Int("entries", report.Entries).Msg("saldo verificado")
	if !report.Consistent() {
		return 1
	}
	return 0
}
