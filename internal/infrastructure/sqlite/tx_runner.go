package sqlite

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción SQLite. Las transacciones de escritura
// se serializan con el candado del Store, equivalente al bloqueo de fila de PostgreSQL.
type TxRunner struct {
	store *Store
}

// Run toma el candado de escritura, abre la tx, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	r.store.writeLock.Lock()
	defer r.store.writeLock.Unlock()

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&StockMovementRepo{q: tx}, &ProductRepo{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translateError("commit transaction", err)
	}
	return nil
}
