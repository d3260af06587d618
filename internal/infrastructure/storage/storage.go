package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

// Backend repositorios y runner transaccional del almacenamiento elegido por STORE_DRIVER.
type Backend struct {
	Driver    string
	Products  repository.ProductRepository
	Users     repository.UserRepository
	Movements repository.StockMovementRepository
	TxRunner  inventory.TxRunner

	ping  func(ctx context.Context) error
	close func() error
}

// Open conecta al almacenamiento configurado y aplica las migraciones pendientes.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Backend, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if err := postgres.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &Backend{
			Driver:    config.DriverPostgres,
			Products:  postgres.NewProductRepository(pool),
			Users:     postgres.NewUserRepository(pool),
			Movements: postgres.NewStockMovementRepository(pool),
			TxRunner:  postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
			ping:      pool.Ping,
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLite.Path, cfg.SQLite.BusyTimeout, log)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return &Backend{
			Driver:    config.DriverSQLite,
			Products:  store.ProductRepository(),
			Users:     store.UserRepository(),
			Movements: store.StockMovementRepository(),
			TxRunner:  store.TxRunner(),
			ping:      store.Ping,
			close:     store.Close,
		}, nil
	}
	return nil, fmt.Errorf("STORE_DRIVER desconocido %q", cfg.Store.Driver)
}

// Ping verifica la conexión.
func (b *Backend) Ping(ctx context.Context) error { return b.ping(ctx) }

// Close libera conexiones.
func (b *Backend) Close() error { return b.close() }
