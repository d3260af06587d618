package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/migrator"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations devuelve las migraciones embebidas de SQLite.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrate aplica las migraciones pendientes. Toma el candado de escritura: nadie más escribe mientras tanto.
func (s *Store) Migrate(ctx context.Context) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if _, err := migrator.Up(ctx, goose.DialectSQLite3, s.db, Migrations(), s.log); err != nil {
		return fmt.Errorf("migraciones SQLite: %w", err)
	}
	return nil
}
