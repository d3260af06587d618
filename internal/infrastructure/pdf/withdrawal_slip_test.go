package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
)

func TestGenerateWithdrawalSlip(t *testing.T) {
	total := decimal.RequireFromString("1500")
	g := NewWithdrawalSlipGenerator("stock-ledger")

	out, err := g.GenerateWithdrawalSlip(context.Background(), dto.MovementResponse{
		ID:              "m1",
		Type:            "withdraw",
		Quantity:        15,
		Location:        "Bodega Norte",
		BillRef:         "BILL-20261016120000000-ABCDEF012345",
		Total:           &total,
		ProductID:       "p1",
		ProductName:     "Tornillo",
		Username:        "ana",
		UserDisplayName: "Ana Pérez",
		CreatedAt:       time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGenerateWithdrawalSlip_NotWithdrawal(t *testing.T) {
	_, err := NewWithdrawalSlipGenerator("x").GenerateWithdrawalSlip(context.Background(), dto.MovementResponse{ID: "m1"})
	assert.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "0,00", formatMoney(decimal.Zero))
	assert.Equal(t, "1.500,00", formatMoney(decimal.NewFromInt(1500)))
	assert.Equal(t, "1.234.567,50", formatMoney(decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "999,99", formatMoney(decimal.RequireFromString("999.99")))
	assert.Equal(t, "-12.000,00", formatMoney(decimal.NewFromInt(-12000)))
}
