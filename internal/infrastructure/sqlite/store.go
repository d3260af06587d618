// Package sqlite implementa los repositorios sobre SQLite embebido (modernc.org/sqlite, sin cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store agrupa la conexión y el candado de escritura compartido por todos los repositorios.
type Store struct {
	db        *sql.DB
	writeLock *sync.Mutex // SQLite admite un solo escritor a la vez
	log       zerolog.Logger
}

// querier es lo común entre *sql.DB y *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open abre (o crea) la base en path con WAL, foreign_keys y busy_timeout.
// Las transacciones arrancan con BEGIN IMMEDIATE: toman el candado de escritura al inicio.
func Open(ctx context.Context, path string, busyTimeout time.Duration, log zerolog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path vacío")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("crear directorio de la base: %w", err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite", dsn(path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &Store{
		db:        db,
		writeLock: new(sync.Mutex),
		log:       log.With().Str("component", "sqlite").Str("path", path).Logger(),
	}, nil
}

func dsn(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return path + "?" + q.Encode()
}

// DB expone la conexión (health checks).
func (s *Store) DB() *sql.DB { return s.db }

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close cierra la conexión.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// ProductRepository repositorio de productos fuera de transacción.
func (s *Store) ProductRepository() *ProductRepo { return &ProductRepo{q: s.db, lock: s.writeLock} }

// UserRepository repositorio de usuarios.
func (s *Store) UserRepository() *UserRepo { return &UserRepo{q: s.db, lock: s.writeLock} }

// StockMovementRepository repositorio de movimientos fuera de transacción (lecturas).
func (s *Store) StockMovementRepository() *StockMovementRepo {
	return &StockMovementRepo{q: s.db, lock: s.writeLock}
}

// TxRunner runner de transacciones sobre esta base.
func (s *Store) TxRunner() *TxRunner { return &TxRunner{store: s} }

// execLocked ejecuta una escritura fuera de tx tomando el candado de escritura.
// Dentro de una tx lock es nil: el TxRunner ya lo tiene.
func execLocked(ctx context.Context, q querier, lock *sync.Mutex, query string, args ...any) (sql.Result, error) {
	if lock != nil {
		lock.Lock()
		defer lock.Unlock()
	}
	return q.ExecContext(ctx, query, args...)
}

func toUnix(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
