package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del inventario.
// Stock solo se modifica a través del libro de stock (AddStock / WithdrawStock).
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal // precio unitario vigente (>= 0)
	Stock       int64           // cantidad disponible, nunca negativa
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
