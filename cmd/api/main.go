package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stock-ledger/internal/application/auth"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/events"
	infrapdf "github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// movementPublisher publicador de eventos con cierre.
type movementPublisher interface {
	inventory.MovementPublisher
	Close() error
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
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("aplicación finalizada con error")
	}
	log.Info().Msg("aplicación detenida")
}

// run arma y sirve la API hasta recibir SIGINT/SIGTERM. Cierra lo que abrió antes de volver.
func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()
	backend, err := storage.Open(ctx, cfg, log.Zerolog())
	if err != nil {
		return fmt.Errorf("abrir almacenamiento: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar almacenamiento")
		}
	}()

	// Eventos: sin EVENTS_RABBITMQ_URL no se publica nada.
	var publisher movementPublisher = events.NopPublisher{}
	if cfg.Events.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.Events.RabbitMQURL, cfg.Events.Exchange, log.Zerolog())
		if err != nil {
			return fmt.Errorf("conexión a RabbitMQ: %w", err)
		}
		publisher = rabbit
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar publicador de eventos")
		}
	}()

	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: login deshabilitado y todo Bearer token será rechazado")
	}

	ledger := inventory.NewStockLedger(backend.TxRunner, backend.Users, nil, publisher, inventory.LedgerConfig{
		MaxRetries:   cfg.Ledger.MaxRetries,
		RetryBackoff: cfg.Ledger.RetryBackoff,
	}, log.Zerolog())
	audit := inventory.NewAuditQuery(backend.Movements, backend.Products, backend.Users,
		infrapdf.NewWithdrawalSlipGenerator(cfg.App.Name))
	productUC := usecase.NewProductUseCase(backend.Products, backend.Users, backend.TxRunner, ledger)
	userUC := usecase.NewUserUseCase(backend.Users, 0)
	authUC := auth.NewAuthUseCase(backend.Users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		Immutable:    true,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI: http://localhost:<port>/docs (solo si existe el archivo)
	if cfg.HTTP.DocsPath != "" {
		if _, err := os.Stat(cfg.HTTP.DocsPath); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: cfg.HTTP.DocsPath,
				Path:     "docs",
				Title:    "Stock Ledger API",
			}))
		} else {
			log.Warn().Str("path", cfg.HTTP.DocsPath).Msg("swagger.json no encontrado, /docs deshabilitado")
		}
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:         ledger,
		Audit:          audit,
		ProductUC:      productUC,
		UserUC:         userUC,
		AuthUC:         authUC,
		Store:          backend,
		JWTSecret:      cfg.JWT.Secret,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		ServiceName:    cfg.App.Name,
		Log:            log.Zerolog(),
	})

	listenErr := make(chan error, 1)
	go func() { listenErr <- app.Listen(cfg.HTTP.Addr()) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("servidor HTTP: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("apagado del servidor: %w", err)
	}
	return nil
}
