package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, name, description, price, stock, created_at, updated_at`

// ProductRepo productos sobre SQLite. Precio como TEXT (decimal exacto), fechas en unix nanos.
type ProductRepo struct {
	q    querier
	lock *sync.Mutex
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	_, err := execLocked(ctx, r.q, r.lock,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Price.String(), p.Stock, toUnix(p.CreatedAt), toUnix(p.UpdatedAt),
	)
	return translateError("insert product", err)
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.get(ctx, "get product", id)
}

// GetForUpdate en SQLite equivale a GetByID: la tx ya tiene el candado de escritura.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.get(ctx, "lock product", id)
}

func (r *ProductRepo) get(ctx context.Context, op, id string) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translateError(op, err)
	}
	return p, nil
}

// UpdateStock fija la cantidad disponible.
func (r *ProductRepo) UpdateStock(ctx context.Context, id string, stock int64, updatedAt time.Time) error {
	res, err := execLocked(ctx, r.q, r.lock,
		`UPDATE products SET stock = ?, updated_at = ? WHERE id = ?`, stock, toUnix(updatedAt), id)
	if err != nil {
		return translateError("update stock", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update stock %s: %w", id, domain.ErrProductNotFound)
	}
	return nil
}

// Update actualiza nombre, descripción y precio. No toca stock.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	_, err := execLocked(ctx, r.q, r.lock,
		`UPDATE products SET name = ?, description = ?, price = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, p.Price.String(), toUnix(p.UpdatedAt), p.ID)
	return translateError("update product", err)
}

// List lista productos por fecha de creación. limit <= 0 = sin límite.
func (r *ProductRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, translateError("list products", err)
	}
	defer rows.Close()

	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, translateError("scan product", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Count cuenta los productos del catálogo.
func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM products`).Scan(&n); err != nil {
		return 0, translateError("count products", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var p entity.Product
	var created, updated int64
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt = fromUnix(created)
	p.UpdatedAt = fromUnix(updated)
	return &p, nil
}
