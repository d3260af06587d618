package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, product_id, user_id, type, quantity, description, location, bill_ref, total, created_at`

// StockMovementRepo movimientos sobre SQLite. Solo inserta y lee.
type StockMovementRepo struct {
	q    querier
	lock *sync.Mutex
}

// Create agrega un movimiento. Una bill_ref repetida devuelve ErrDuplicate.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	var total sql.NullString
	if m.Total != nil {
		total = sql.NullString{String: m.Total.String(), Valid: true}
	}
	_, err := execLocked(ctx, r.q, r.lock,
		`INSERT INTO stock_movements (`+movementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProductID, m.UserID, m.Type, m.Quantity, m.Description,
		nullIfEmpty(m.Location), nullIfEmpty(m.BillRef), total, toUnix(m.CreatedAt),
	)
	return translateError("insert stock movement", err)
}

// GetByBillRef obtiene el retiro con esa referencia de factura.
func (r *StockMovementRepo) GetByBillRef(ctx context.Context, billRef string) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRowContext(ctx,
		`SELECT `+movementColumns+` FROM stock_movements WHERE bill_ref = ?`, billRef))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translateError("get movement by bill_ref", err)
	}
	return m, nil
}

// List lista movimientos filtrados, del más reciente al más antiguo (rowid desempata).
func (r *StockMovementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	where, args := movementWhere(filter)
	query := `SELECT ` + movementColumns + ` FROM stock_movements` + where
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError("list stock movements", err)
	}
	defer rows.Close()

	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, translateError("scan stock movement", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Count cuenta los movimientos que cumplen el filtro, sin paginar.
func (r *StockMovementRepo) Count(ctx context.Context, filter repository.MovementFilter) (int, error) {
	where, args := movementWhere(filter)
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM stock_movements`+where, args...).Scan(&n); err != nil {
		return 0, translateError("count stock movements", err)
	}
	return n, nil
}

func movementWhere(filter repository.MovementFilter) (string, []any) {
	var where []string
	var args []any
	if filter.ProductID != "" {
		where = append(where, "product_id = ?")
		args = append(args, filter.ProductID)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if len(where) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(where, " AND "), args
}

func scanMovement(row rowScanner) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var location, billRef sql.NullString
	var total decimal.NullDecimal
	var created int64
	err := row.Scan(
		&m.ID, &m.ProductID, &m.UserID, &m.Type, &m.Quantity, &m.Description,
		&location, &billRef, &total, &created,
	)
	if err != nil {
		return nil, err
	}
	m.Location = location.String
	m.BillRef = billRef.String
	if total.Valid {
		t := total.Decimal
		m.Total = &t
	}
	m.CreatedAt = fromUnix(created)
	return &m, nil
}
