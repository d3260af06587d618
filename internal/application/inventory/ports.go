package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza que el cambio de stock y el movimiento se confirmen juntos o no se confirme ninguno.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// Tipos de evento publicados tras confirmar un movimiento.
const (
	EventStockAdded     = "stock.added"
	EventStockWithdrawn = "stock.withdrawn"
)

// MovementEvent notificación de un movimiento ya confirmado.
type MovementEvent struct {
	Type       string           `json:"type"`
	MovementID string           `json:"movement_id"`
	ProductID  string           `json:"product_id"`
	UserID     string           `json:"user_id"`
	Quantity   int64            `json:"quantity"`
	StockAfter int64            `json:"stock_after"`
	Location   string           `json:"location,omitempty"`
	BillRef    string           `json:"bill_ref,omitempty"`
	Total      *decimal.Decimal `json:"total,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// MovementPublisher publica eventos de movimiento (best-effort, fuera de la transacción).
type MovementPublisher interface {
	PublishMovement(ctx context.Context, event MovementEvent) error
}

// WithdrawalSlipGenerator genera el comprobante PDF de un retiro.
type WithdrawalSlipGenerator interface {
	GenerateWithdrawalSlip(ctx context.Context, movement dto.MovementResponse) ([]byte, error)
}
