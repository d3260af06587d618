package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/migrator"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations devuelve las migraciones embebidas de PostgreSQL.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate aplica las migraciones pendientes sobre el pool. Un session lock de goose
// impide que dos réplicas migren a la vez.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return fmt.Errorf("crear session locker: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if _, err := migrator.Up(ctx, goose.DialectPostgres, db, Migrations(), log, goose.WithSessionLocker(locker)); err != nil {
		return fmt.Errorf("migraciones PostgreSQL: %w", err)
	}
	return nil
}
