package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock.
const (
	MovementTypeAdd      = "add"      // entrada (reposición)
	MovementTypeWithdraw = "withdraw" // salida (retiro)
)

// ValidMovementType indica si t es un tipo de movimiento conocido.
func ValidMovementType(t string) bool {
	return t == MovementTypeAdd || t == MovementTypeWithdraw
}

// StockMovement es el registro inmutable de un cambio de cantidad.
// Location, BillRef y Total solo aplican a retiros; Total es una foto del
// precio al momento del movimiento y nunca se recalcula.
type StockMovement struct {
	ID          string
	ProductID   string
	UserID      string
	Type        string
	Quantity    int64 // siempre > 0; el signo lo da Type
	Description string
	Location    string
	BillRef     string
	Total       *decimal.Decimal
	CreatedAt   time.Time
}

// IsWithdraw indica si el movimiento es un retiro.
func (m *StockMovement) IsWithdraw() bool { return m.Type == MovementTypeWithdraw }
