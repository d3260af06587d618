package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, product_id, user_id, type, quantity, description, location, bill_ref, total, created_at`

// StockMovementRepo implementación sobre PostgreSQL (usable con pool o tx). Solo inserta y lee.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create agrega un movimiento. Una bill_ref repetida devuelve ErrDuplicate.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	var total decimal.NullDecimal
	if m.Total != nil {
		total = decimal.NewNullDecimal(*m.Total)
	}
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.UserID, m.Type, m.Quantity, m.Description,
		nullIfEmpty(m.Location), nullIfEmpty(m.BillRef), total, m.CreatedAt,
	)
	return translateError("insert stock movement", err)
}

// GetByBillRef obtiene el retiro con esa referencia de factura.
func (r *StockMovementRepo) GetByBillRef(ctx context.Context, billRef string) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE bill_ref = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, billRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translateError("get movement by bill_ref", err)
	}
	return m, nil
}

// List lista movimientos filtrados, del más reciente al más antiguo (seq desempata).
func (r *StockMovementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	where, args := movementWhere(filter)
	pos := len(args) + 1
	query := `SELECT ` + movementColumns + ` FROM stock_movements` + where
	query += ` ORDER BY created_at DESC, seq DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, filter.Limit)
		pos++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", pos)
		args = append(args, filter.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
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
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements`+where, args...).Scan(&n); err != nil {
		return 0, translateError("count stock movements", err)
	}
	return n, nil
}

// movementWhere arma el WHERE con placeholders $1, $2, ...
func movementWhere(filter repository.MovementFilter) (string, []any) {
	var where []string
	var args []any
	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		where = append(where, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if len(where) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(where, " AND "), args
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var location, billRef *string
	var total decimal.NullDecimal
	err := row.Scan(
		&m.ID, &m.ProductID, &m.UserID, &m.Type, &m.Quantity, &m.Description,
		&location, &billRef, &total, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Location = derefString(location)
	m.BillRef = derefString(billRef)
	if total.Valid {
		t := total.Decimal
		m.Total = &t
	}
	return &m, nil
}
