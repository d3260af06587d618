// Package migrator aplica las migraciones SQL embebidas de cada almacenamiento con goose.
package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// Up aplica las migraciones pendientes de fsys (archivos NNNN_nombre.sql en la raíz, con
// anotaciones "-- +goose Up") y devuelve las versiones aplicadas. Cada archivo corre en su tx.
func Up(
	ctx context.Context,
	dialect goose.Dialect,
	db *sql.DB,
	fsys fs.FS,
	log zerolog.Logger,
	opts ...goose.ProviderOption,
) ([]int64, error) {
	provider, err := goose.NewProvider(dialect, db, fsys, opts...)
	if err != nil {
		return nil, fmt.Errorf("preparar migraciones: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("aplicar migraciones: %w", err)
	}

	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
		log.Info().
			Int64("version", r.Source.Version).
			Str("file", r.Source.Path).
			Dur("duration", r.Duration).
			Msg("migración aplicada")
	}
	return applied, nil
}

// Version devuelve la última versión aplicada en db (0 si no hay ninguna).
func Version(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS) (int64, error) {
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return 0, fmt.Errorf("preparar migraciones: %w", err)
	}
	return provider.GetDBVersion(ctx)
}
