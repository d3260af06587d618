package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AddStockRequest body para PUT /products/{id}/stock/add.
// UserID puede omitirse si la petición trae un Bearer token válido.
type AddStockRequest struct {
	UserID      string `json:"user_id"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
	Description string `json:"description" validate:"max=500"`
}

// WithdrawStockRequest body para PUT /products/{id}/stock/withdraw.
type WithdrawStockRequest struct {
	UserID      string `json:"user_id"`
	Quantity    int64  `json:"quantity" validate:"gt=0"`
	Description string `json:"description" validate:"max=500"`
	Location    string `json:"location" validate:"required,max=200"`
	BillRef     string `json:"bill_ref" validate:"omitempty,max=64"`
}

// MovementHistoryQuery filtros de GET /stock-history.
type MovementHistoryQuery struct {
	ProductID string `query:"product_id"`
	Type      string `query:"type" validate:"omitempty,oneof=add withdraw"`
	PageRequest
}

// MovementResponse movimiento enriquecido con datos de producto y usuario.
// ProductPrice es el precio vigente; Total es la foto tomada al retirar.
type MovementResponse struct {
	ID              string           `json:"id"`
	Type            string           `json:"type"`
	Quantity        int64            `json:"quantity"`
	Description     string           `json:"description"`
	Location        string           `json:"location,omitempty"`
	BillRef         string           `json:"bill_ref,omitempty"`
	Total           *decimal.Decimal `json:"total,omitempty"`
	ProductID       string           `json:"product_id"`
	ProductName     string           `json:"product_name"`
	ProductPrice    *decimal.Decimal `json:"product_price,omitempty"`
	UserID          string           `json:"user_id"`
	Username        string           `json:"username"`
	UserDisplayName string           `json:"user_display_name"`
	CreatedAt       time.Time        `json:"created_at"`
}

// MovementListResponse lista de movimientos, del más reciente al más antiguo.
// Total cuenta todos los movimientos del filtro, no solo los de la página.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Total int                `json:"total"`
}

// StockChangeResponse respuesta de AddStock / WithdrawStock.
type StockChangeResponse struct {
	Message  string           `json:"message"`
	Product  ProductResponse  `json:"product"`
	Movement MovementResponse `json:"movement"`
	BillRef  string           `json:"bill_ref,omitempty"`
	Total    *decimal.Decimal `json:"total,omitempty"`
}
