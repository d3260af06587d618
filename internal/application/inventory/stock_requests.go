package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AddStockFromRequest adapta el request HTTP al caso de uso AddStock.
func (l *StockLedger) AddStockFromRequest(ctx context.Context, productID, userID string, in dto.AddStockRequest) (*dto.StockChangeResponse, error) {
	change, err := l.AddStock(ctx, AddStockInput{
		ProductID:   productID,
		UserID:      userID,
		Quantity:    in.Quantity,
		Description: in.Description,
	})
	if err != nil {
		return nil, err
	}
	return toStockChangeResponse("stock agregado", change), nil
}

// WithdrawStockFromRequest adapta el request HTTP al caso de uso WithdrawStock.
func (l *StockLedger) WithdrawStockFromRequest(ctx context.Context, productID, userID string, in dto.WithdrawStockRequest) (*dto.StockChangeResponse, error) {
	change, err := l.WithdrawStock(ctx, WithdrawStockInput{
		ProductID:   productID,
		UserID:      userID,
		Quantity:    in.Quantity,
		Description: in.Description,
		Location:    in.Location,
		BillRef:     in.BillRef,
	})
	if err != nil {
		return nil, err
	}
	out := toStockChangeResponse("stock retirado", change)
	out.BillRef = change.Movement.BillRef
	out.Total = change.Movement.Total
	return out, nil
}

func toStockChangeResponse(msg string, change *StockChange) *dto.StockChangeResponse {
	p := change.Product
	mov := toMovementResponse(change.Movement)
	price := p.Price
	mov.ProductName = p.Name
	mov.ProductPrice = &price
	mov.Username = change.User.Username
	mov.UserDisplayName = change.User.DisplayName
	return &dto.StockChangeResponse{
		Message:  msg,
		Product:  productResponse(p),
		Movement: mov,
	}
}

func productResponse(p *entity.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
