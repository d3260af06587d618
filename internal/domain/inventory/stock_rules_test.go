package inventory_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

func TestValidateQuantity(t *testing.T) {
	assert.NoError(t, inventory.ValidateQuantity(1))
	assert.ErrorIs(t, inventory.ValidateQuantity(0), domain.ErrInvalidInput)
	assert.ErrorIs(t, inventory.ValidateQuantity(-5), domain.ErrInvalidInput)
}

func TestValidateLocation(t *testing.T) {
	assert.NoError(t, inventory.ValidateLocation("WH1"))
	assert.ErrorIs(t, inventory.ValidateLocation(""), domain.ErrInvalidInput)
	assert.ErrorIs(t, inventory.ValidateLocation("   "), domain.ErrInvalidInput)
}

func TestApplyWithdraw(t *testing.T) {
	left, err := inventory.ApplyWithdraw(15, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(0), left)

	left, err = inventory.ApplyWithdraw(15, 20)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, int64(15), left, "el stock no cambia si el retiro falla")
}

func TestWithdrawalTotal(t *testing.T) {
	total := inventory.WithdrawalTotal(15, decimal.NewFromInt(100))
	assert.True(t, total.Equal(decimal.NewFromInt(1500)), "15 x 100 = 1500, obtenido %s", total)

	total = inventory.WithdrawalTotal(3, decimal.RequireFromString("19.99"))
	assert.Equal(t, "59.97", total.String())
}
