// seed importa un catálogo de productos desde CSV a través del caso de uso de productos,
// de modo que el stock inicial queda registrado como movimiento "add".
//
// Uso: go run ./cmd/seed --file productos.csv [--latin1] [--user admin --password secreto123]
// Columnas: name,description,price,initial_stock
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/storage"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	file := flag.StringP("file", "f", "productos.csv", "CSV de catálogo")
	latin1 := flag.Bool("latin1", false, "el CSV viene en ISO-8859-1")
	username := flag.String("user", "", "usuario al que se atribuye el stock inicial (se crea si no existe)")
	password := flag.String("password", "", "password del usuario si hay que crearlo")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).Zerolog()

	if err := run(context.Background(), cfg, log, *file, *latin1, *username, *password); err != nil {
		log.Error().Err(err).Msg("seed falló")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, file string, latin1 bool, username, password string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("abrir CSV: %w", err)
	}
	defer f.Close()

	backend, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	userID, err := seedUser(ctx, backend.Users, username, password)
	if err != nil {
		return err
	}

	products, err := readCatalog(f, latin1, userID)
	if err != nil {
		return err
	}

	ledger := inventory.NewStockLedger(backend.TxRunner, backend.Users, nil, nil, inventory.LedgerConfig{
		MaxRetries:   cfg.Ledger.MaxRetries,
		RetryBackoff: cfg.Ledger.RetryBackoff,
	}, log)
	productUC := usecase.NewProductUseCase(backend.Products, backend.Users, backend.TxRunner, ledger)

	for _, in := range products {
		p, err := productUC.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("crear %q: %w", in.Name, err)
		}
		log.Info().Str("id", p.ID).Str("name", p.Name).Int64("stock", p.Stock).Msg("producto creado")
	}
	log.Info().Int("total", len(products)).Msg("catálogo importado")
	return nil
}

// seedUser devuelve el ID del usuario, creándolo si no existe. Sin username no hay actor.
func seedUser(ctx context.Context, users repository.UserRepository, username, password string) (string, error) {
	if username == "" {
		return "", nil
	}
	existing, err := users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}
	if password == "" {
		return "", errors.New("--password es requerido para crear el usuario")
	}
	created, err := usecase.NewUserUseCase(users, 0).Register(ctx, dto.RegisterUserRequest{
		Username: username,
		Password: password,
		Role:     "admin",
	})
	if errors.Is(err, domain.ErrDuplicate) {
		// Creado por otro proceso entre la consulta y el registro.
		u, gerr := users.GetByUsername(ctx, username)
		if gerr != nil || u == nil {
			return "", err
		}
		return u.ID, nil
	}
	if err != nil {
		return "", err
	}
	return created.ID, nil
}
