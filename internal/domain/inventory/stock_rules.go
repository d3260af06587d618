package inventory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// ValidateQuantity exige una cantidad entera positiva.
func ValidateQuantity(quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity debe ser mayor que cero", domain.ErrInvalidInput)
	}
	return nil
}

// ValidateLocation exige una ubicación no vacía (obligatoria en retiros).
func ValidateLocation(location string) error {
	if strings.TrimSpace(location) == "" {
		return fmt.Errorf("%w: location es requerida", domain.ErrInvalidInput)
	}
	return nil
}

// ApplyWithdraw calcula el stock resultante de retirar quantity.
// Devuelve ErrInsufficientStock si el stock actual no alcanza.
func ApplyWithdraw(current, quantity int64) (int64, error) {
	if current < quantity {
		return current, fmt.Errorf("%w: disponible %d, solicitado %d", domain.ErrInsufficientStock, current, quantity)
	}
	return current - quantity, nil
}

// WithdrawalTotal implementa el total congelado de un retiro (servicio de dominio).
// Total = Cantidad * PrecioUnitario, con el precio vigente al momento del retiro.
func WithdrawalTotal(quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(quantity).Mul(unitPrice)
}
