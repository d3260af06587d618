package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

func TestAuditQuery_DanglingReferencesBecomeUnknown(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana", "Ana Pérez")
	f.seedProduct(t, "p1", "5", 0)

	base := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	total := decimal.NewFromInt(10)
	movs := []*entity.StockMovement{
		{ID: "m1", ProductID: "p1", UserID: "u1", Type: entity.MovementTypeAdd, Quantity: 4, CreatedAt: base},
		{ID: "m2", ProductID: "borrado", UserID: "u1", Type: entity.MovementTypeAdd, Quantity: 1, CreatedAt: base.Add(time.Minute)},
		{ID: "m3", ProductID: "p1", UserID: "fantasma", Type: entity.MovementTypeWithdraw, Quantity: 2,
			Location: "Caja", BillRef: "BILL-X", Total: &total, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, m := range movs {
		require.NoError(t, f.store.StockMovementRepository().Create(ctx, m))
	}

	list, err := f.audit.ListMovements(ctx, repository.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, list.Items, 3)
	assert.Equal(t, 3, list.Total)

	assert.Equal(t, []string{"m3", "m2", "m1"}, []string{list.Items[0].ID, list.Items[1].ID, list.Items[2].ID})

	assert.Equal(t, "Producto p1", list.Items[0].ProductName)
	assert.Equal(t, inventory.UnknownLabel, list.Items[0].Username)
	assert.Equal(t, inventory.UnknownLabel, list.Items[0].UserDisplayName)

	assert.Equal(t, inventory.UnknownLabel, list.Items[1].ProductName)
	assert.Nil(t, list.Items[1].ProductPrice)
	assert.Equal(t, "ana", list.Items[1].Username)

	assert.Equal(t, "Ana Pérez", list.Items[2].UserDisplayName)
	require.NotNil(t, list.Items[2].ProductPrice)
	assert.True(t, decimal.NewFromInt(5).Equal(*list.Items[2].ProductPrice))

	withdrawals, err := f.audit.ListMovements(ctx, repository.MovementFilter{Type: entity.MovementTypeWithdraw})
	require.NoError(t, err)
	require.Len(t, withdrawals.Items, 1)
	assert.Equal(t, "BILL-X", withdrawals.Items[0].BillRef)

	empty, err := f.audit.ListMovements(ctx, repository.MovementFilter{ProductID: "no-existe"})
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func TestAuditQuery_InvalidFilter(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.audit.ListMovements(ctx, repository.MovementFilter{Type: "transfer"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.audit.ListMovements(ctx, repository.MovementFilter{Limit: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.audit.GetWithdrawal(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.audit.GetWithdrawal(ctx, "BILL-NADA")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// failingProducts devuelve err en toda lectura.
type failingProducts struct {
	repository.ProductRepository
	err error
}

func (f failingProducts) GetByID(context.Context, string) (*entity.Product, error) { return nil, f.err }

func TestAuditQuery_StorageErrorPropagates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana", "Ana")
	require.NoError(t, f.store.StockMovementRepository().Create(ctx, &entity.StockMovement{
		ID: "m1", ProductID: "p1", UserID: "u1", Type: entity.MovementTypeAdd, Quantity: 1, CreatedAt: time.Now().UTC(),
	}))

	boom := errors.New("disco lleno")
	audit := inventory.NewAuditQuery(f.store.StockMovementRepository(), failingProducts{err: boom}, f.store.UserRepository(), nil)
	_, err := audit.ListMovements(ctx, repository.MovementFilter{})
	assert.ErrorIs(t, err, boom)
}

type stubSlips struct{ got dto.MovementResponse }

func (s *stubSlips) GenerateWithdrawalSlip(_ context.Context, m dto.MovementResponse) ([]byte, error) {
	s.got = m
	return []byte("%PDF-stub"), nil
}

func TestAuditQuery_WithdrawalSlip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana", "Ana")
	f.seedProduct(t, "p1", "7.5", 4)

	w, err := f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: 2, Location: "Bodega"})
	require.NoError(t, err)

	slips := &stubSlips{}
	audit := inventory.NewAuditQuery(f.store.StockMovementRepository(), f.store.ProductRepository(), f.store.UserRepository(), slips)
	pdf, name, err := audit.WithdrawalSlip(ctx, w.Movement.BillRef)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-stub", string(pdf))
	assert.Equal(t, w.Movement.BillRef+".pdf", name)
	assert.Equal(t, "Bodega", slips.got.Location)
	require.NotNil(t, slips.got.Total)
	assert.True(t, decimal.NewFromInt(15).Equal(*slips.got.Total))

	_, _, err = f.audit.WithdrawalSlip(ctx, w.Movement.BillRef)
	assert.Error(t, err)
}
