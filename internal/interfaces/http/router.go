package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
)

// Pinger verifica el almacenamiento para /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapta una función a Pinger.
type PingFunc func(ctx context.Context) error

// Ping implementa Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger         *inventory.StockLedger
	Audit          *inventory.AuditQuery
	ProductUC      *usecase.ProductUseCase
	UserUC         *usecase.UserUseCase
	AuthUC         *auth.AuthUseCase
	Store          Pinger
	JWTSecret      string
	RequestTimeout time.Duration
	ServiceName    string
	Log            zerolog.Logger
}

// Router registra middlewares y rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	val := NewValidator()

	app.Use(RequestLogger(deps.Log))
	app.Use(RequestTimeout(deps.RequestTimeout))

	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Store != nil {
			if err := deps.Store.Ping(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "STORE_DOWN", Message: err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC, val)
	app.Post("/auth/login", authHandler.Login)

	// El resto acepta Bearer opcional: si viene, su subject es el user_id por defecto.
	api := app.Group("/", OptionalAuthMiddleware(deps.JWTSecret))

	userHandler := NewUserHandler(deps.UserUC, val)
	api.Post("/users", userHandler.Register)
	api.Get("/users/:id", userHandler.GetByID)

	productHandler := NewProductHandler(deps.ProductUC, val)
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Audit, val)

	products := api.Group("/products")
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)
	products.Put("/:id/stock/add", inventoryHandler.AddStock)
	products.Put("/:id/stock/withdraw", inventoryHandler.WithdrawStock)
	products.Get("/:id/stock-history", inventoryHandler.ProductHistory)

	history := api.Group("/stock-history")
	history.Get("/", inventoryHandler.History)
	history.Get("/withdraw", inventoryHandler.Withdrawals)
	history.Get("/withdraw/:billRef", inventoryHandler.GetWithdrawal)
	history.Get("/withdraw/:billRef/pdf", inventoryHandler.WithdrawalPDF)
}
