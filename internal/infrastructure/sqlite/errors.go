package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

const stockCheckConstraint = "products_stock_non_negative"

// translateError convierte errores de SQLite en errores de dominio, conservando el original.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		switch code {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrDuplicate, err)
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			if strings.Contains(liteErr.Error(), stockCheckConstraint) {
				return fmt.Errorf("%s: %w: %w", op, domain.ErrInsufficientStock, err)
			}
			return fmt.Errorf("%s: %w: %w", op, domain.ErrInvalidInput, err)
		}
		switch code & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrConflict, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
