package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/application/orders"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CreateOrder *orders.CreateOrderUseCase
	Transition  *orders.TransitionUseCase
	OrderQuery  *orders.QueryUseCase
	Swap        *orders.SwapUseCase
	Ledger      *inventory.LedgerUseCase
	Reconcile   *inventory.ReconcileUseCase
	Authorizer  orders.Authorizer // nil = RoleAuthorizer
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authz := deps.Authorizer
	if authz == nil {
		authz = RoleAuthorizer{}
	}

	// Rutas protegidas (requieren Bearer Token)
	protected := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Orders: el permiso por acción lo decide el Authorizer
	ordersGroup := protected.Group("/orders")
	orderHandler := NewOrderHandler(deps.CreateOrder, deps.Transition, deps.OrderQuery, deps.Swap, authz)
	ordersGroup.Post("/", orderHandler.Create)
	ordersGroup.Get("/:order_id", orderHandler.GetByID)
	ordersGroup.Get("/:order_id/history", orderHandler.History)
	ordersGroup.Post("/:order_id/transitions", orderHandler.Transition)
	ordersGroup.Get("/:order_id/requirements", orderHandler.Requirements)
	ordersGroup.Get("/:order_id/allocations", orderHandler.Allocations)
	ordersGroup.Get("/:order_id/availability", orderHandler.Availability)
	ordersGroup.Post("/:order_id/swap", orderHandler.Swap)

	// Stock
	stock := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.Ledger, deps.Reconcile)
	stock.Get("/balances/:product_id", stockHandler.ListBalances)
	stock.Get("/balances/:product_id/:location_id", stockHandler.GetBalance)
	stock.Get("/ledger", stockHandler.ListLedger)
	stock.Post("/ledger", RequireRole(RoleAdmin, RoleBodeguero), stockHandler.AppendLedger)
	stock.Post("/reconcile", RequireRole(RoleAdmin), stockHandler.Reconcile)
	stock.Post("/count", RequireRole(RoleAdmin), stockHandler.Count)
}
