package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/application/orders"
	domaininv "github.com/jhoicas/produccion-api/internal/domain/inventory"
	infrakafka "github.com/jhoicas/produccion-api/internal/infrastructure/kafka"
	"github.com/jhoicas/produccion-api/internal/infrastructure/memory"
	"github.com/jhoicas/produccion-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/produccion-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/produccion-api/internal/interfaces/http"
	"github.com/jhoicas/produccion-api/pkg/config"
	"github.com/jhoicas/produccion-api/pkg/logger"
)

// storage adaptadores elegidos por STORAGE_DRIVER.
type storage struct {
	txRunner inventory.TxRunner
	repos    inventory.Repos
	catalog  orders.Catalog
	ids      orders.IDGenerator
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	st := openStorage(ctx, cfg, log)
	defer st.close()

	// Redis: contador de números de orden (ORDER_ID_BACKEND=redis) y lock de conciliación.
	var locker inventory.Locker
	if cfg.Redis.Enabled() {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer func(rdb *goredis.Client) { _ = rdb.Close() }(rdb)
		locker = infraredis.NewLocker(rdb)
		if cfg.Storage.OrderIDBackend == "redis" {
			st.ids = infraredis.NewCounterIDGenerator(rdb, cfg.App.Name+":")
		}
	}

	var publisher orders.EventPublisher = orders.NopPublisher{}
	if cfg.Kafka.Enabled() {
		kp := infrakafka.NewOrderPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar productor Kafka")
			}
		}()
		publisher = kp
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.OrderTopic).Msg("eventos de orden hacia Kafka")
	}

	calculator := domaininv.NewRMCalculator(cfg.RM.DefaultScrapAllowance)
	ledgerUC := inventory.NewLedgerUseCase(st.txRunner, st.repos, log)
	allocationUC := inventory.NewAllocationUseCase(st.txRunner, st.repos, ledgerUC, inventory.BatchPolicy(cfg.Allocation.BatchPolicy), log)
	reconcileUC := inventory.NewReconcileUseCase(st.txRunner, st.repos, ledgerUC, locker, cfg.Reconcile.LockTTL, log)
	createUC := orders.NewCreateOrderUseCase(st.txRunner, st.catalog, st.ids, publisher, log)
	transitionUC := orders.NewTransitionUseCase(st.txRunner, st.catalog, calculator, allocationUC, ledgerUC, publisher,
		orders.TransitionConfig{
			AllowPartial:      cfg.Allocation.AllowPartial,
			ReceivingLocation: cfg.Allocation.ReceivingLocation,
		}, log)
	queryUC := orders.NewQueryUseCase(st.repos, st.catalog, calculator, allocationUC)
	swapUC := orders.NewSwapUseCase(st.txRunner, st.catalog, calculator, allocationUC, publisher, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		CreateOrder: createUC,
		Transition:  transitionUC,
		OrderQuery:  queryUC,
		Swap:        swapUC,
		Ledger:      ledgerUC,
		Reconcile:   reconcileUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) *storage {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("STORAGE_DRIVER=memory: los datos no se persisten")
		store := memory.NewStore()
		return &storage{
			txRunner: memory.NewTxRunner(store),
			repos:    store.Repos(),
			catalog:  memory.NewCatalog(),
			ids:      memory.NewIDGenerator(),
			close:    func() {},
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	return &storage{
		txRunner: postgres.NewTxRunner(pool),
		repos:    postgres.NewRepos(pool),
		catalog:  postgres.NewCatalogRepository(pool),
		ids:      postgres.NewSequenceIDGenerator(pool),
		close:    pool.Close,
	}
}
