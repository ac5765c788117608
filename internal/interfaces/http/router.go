package http

import (
	"github.com/gofiber/fiber/v2"
	appanalytics "github.com/jhoicas/album-ledger-api/internal/application/analytics"
	"github.com/jhoicas/album-ledger-api/internal/application/inventory"
	"github.com/jhoicas/album-ledger-api/internal/application/usecase"
)

// RoleAdmin rol requerido para reconciliar stock cuando la autenticación está activa.
const RoleAdmin = "admin"

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ItemUC      *usecase.ItemUseCase
	Resolver    *inventory.StockResolver
	LedgerUC    *appanalytics.LedgerQueryUseCase
	DashboardUC *appanalytics.DashboardUseCase
	// JWTSecret vacío deja las escrituras sin autenticación (desarrollo).
	JWTSecret string
	// Metrics handler de /metrics; nil = no se expone.
	Metrics     fiber.Handler
	ServiceName string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics)
	}

	// Las lecturas son públicas; las escrituras requieren Bearer Token si hay secreto.
	var write, admin []fiber.Handler
	if deps.JWTSecret != "" {
		auth := AuthMiddleware(deps.JWTSecret)
		write = []fiber.Handler{auth}
		admin = []fiber.Handler{auth, RequireRole(RoleAdmin)}
	}
	with := func(mw []fiber.Handler, h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, mw...), h)
	}

	api := app.Group("/api")

	itemHandler := NewItemHandler(deps.ItemUC, deps.Resolver)
	items := api.Group("/items")
	items.Get("/", itemHandler.List)
	items.Post("/", with(write, itemHandler.Create)...)
	items.Get("/:id", itemHandler.GetByID)
	items.Put("/:id", with(write, itemHandler.Update)...)
	items.Delete("/:id", with(write, itemHandler.Delete)...)
	items.Get("/:id/stock", itemHandler.Stock)
	items.Post("/:id/reconcile", with(admin, itemHandler.Reconcile)...)

	txHandler := NewTransactionHandler(deps.Resolver, deps.LedgerUC)
	transactions := api.Group("/transactions")
	transactions.Get("/", txHandler.List)
	transactions.Post("/", with(write, txHandler.Create)...)
	transactions.Get("/item/:itemId", txHandler.ListByItem)
	transactions.Get("/album/:itemId", txHandler.ListByItem)

	summaryHandler := NewSummaryHandler(deps.DashboardUC)
	api.Get("/summary", summaryHandler.GetSummary)
}
