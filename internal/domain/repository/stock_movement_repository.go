package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementFilter filtros para listar movimientos. Campos vacíos no filtran;
// Limit 0 devuelve todos.
type MovementFilter struct {
	ProductID string
	Type      string
	Limit     int
	Offset    int
}

// StockMovementRepository define el puerto de persistencia para movimientos.
// Solo permite agregar y leer: los movimientos nunca se modifican ni se borran.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByBillRef(ctx context.Context, billRef string) (*entity.StockMovement, error)
	// List devuelve los movimientos ordenados del más reciente al más antiguo.
	List(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error)
	// Count cuenta los movimientos del filtro ignorando Limit y Offset.
	Count(ctx context.Context, filter MovementFilter) (int, error)
}
