package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para registrar un producto.
// Si InitialStock > 0 se registra como movimiento "add" de UserID.
type CreateProductRequest struct {
	Name         string           `json:"name" validate:"required,min=1,max=200"`
	Description  string           `json:"description" validate:"max=1000"`
	Price        *decimal.Decimal `json:"price" validate:"required"`
	InitialStock int64            `json:"initial_stock" validate:"min=0"`
	UserID       string           `json:"user_id"`
}

// UpdateProductRequest entrada para actualizar datos de catálogo (nunca el stock).
type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=1000"`
	Price       *decimal.Decimal `json:"price"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
