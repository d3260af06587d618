package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// InventoryHandler maneja entradas, retiros e historial de stock.
type InventoryHandler struct {
	ledger *inventory.StockLedger
	audit  *inventory.AuditQuery
	val    *Validator
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.StockLedger, audit *inventory.AuditQuery, val *Validator) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, audit: audit, val: val}
}

// AddStock godoc
// @Summary      Agregar stock
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "ID del producto"
// @Param        body  body  dto.AddStockRequest  true  "user_id (opcional con Bearer), quantity > 0, description"
// @Success      200   {object}  dto.StockChangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /products/{id}/stock/add [put]
func (h *InventoryHandler) AddStock(c *fiber.Ctx) error {
	var in dto.AddStockRequest
	if ok, err := bindJSON(c, h.val, &in); !ok {
		return err
	}
	out, err := h.ledger.AddStockFromRequest(c.UserContext(), c.Params("id"), actorID(c, in.UserID), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// WithdrawStock godoc
// @Summary      Retirar stock
// @Description  Resta stock, congela el total (cantidad x precio vigente) y asigna bill_ref si no se envía.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del producto"
// @Param        body  body  dto.WithdrawStockRequest  true  "user_id, quantity > 0, location, bill_ref opcional"
// @Success      200   {object}  dto.StockChangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /products/{id}/stock/withdraw [put]
func (h *InventoryHandler) WithdrawStock(c *fiber.Ctx) error {
	var in dto.WithdrawStockRequest
	if ok, err := bindJSON(c, h.val, &in); !ok {
		return err
	}
	out, err := h.ledger.WithdrawStockFromRequest(c.UserContext(), c.Params("id"), actorID(c, in.UserID), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// ProductHistory godoc
// @Summary      Historial de stock de un producto
// @Tags         stock
// @Produce      json
// @Param        id      path   string  true   "ID del producto"
// @Param        limit   query  int     false  "Límite (0 = todos)"
// @Param        offset  query  int     false  "Offset"
// @Success      200     {object}  dto.MovementListResponse
// @Router       /products/{id}/stock-history [get]
func (h *InventoryHandler) ProductHistory(c *fiber.Ctx) error {
	q, ok, err := h.historyQuery(c)
	if !ok {
		return err
	}
	q.ProductID = c.Params("id")
	return h.list(c, q)
}

// Withdrawals godoc
// @Summary      Historial de retiros
// @Tags         stock
// @Produce      json
// @Param        product_id  query  string  false  "Filtrar por producto"
// @Param        limit   query  int  false  "Límite (0 = todos)"
// @Param        offset  query  int  false  "Offset"
// @Success      200     {object}  dto.MovementListResponse
// @Router       /stock-history/withdraw [get]
func (h *InventoryHandler) Withdrawals(c *fiber.Ctx) error {
	q, ok, err := h.historyQuery(c)
	if !ok {
		return err
	}
	q.Type = entity.MovementTypeWithdraw
	return h.list(c, q)
}

// History godoc
// @Summary      Historial de movimientos filtrado
// @Tags         stock
// @Produce      json
// @Param        product_id  query  string  false  "Filtrar por producto"
// @Param        type        query  string  false  "add | withdraw"
// @Param        limit       query  int     false  "Límite (0 = todos)"
// @Param        offset      query  int     false  "Offset"
// @Success      200         {object}  dto.MovementListResponse
// @Failure      400         {object}  dto.ErrorResponse
// @Router       /stock-history [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	q, ok, err := h.historyQuery(c)
	if !ok {
		return err
	}
	return h.list(c, q)
}

// GetWithdrawal godoc
// @Summary      Obtener un retiro por bill_ref
// @Tags         stock
// @Produce      json
// @Param        billRef  path  string  true  "Referencia de factura"
// @Success      200      {object}  dto.MovementResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Router       /stock-history/withdraw/{billRef} [get]
func (h *InventoryHandler) GetWithdrawal(c *fiber.Ctx) error {
	out, err := h.audit.GetWithdrawal(c.UserContext(), c.Params("billRef"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// WithdrawalPDF godoc
// @Summary      Comprobante PDF de un retiro
// @Tags         stock
// @Produce      application/pdf
// @Param        billRef  path  string  true  "Referencia de factura"
// @Success      200      {file}    binary
// @Failure      404      {object}  dto.ErrorResponse
// @Router       /stock-history/withdraw/{billRef}/pdf [get]
func (h *InventoryHandler) WithdrawalPDF(c *fiber.Ctx) error {
	pdf, filename, err := h.audit.WithdrawalSlip(c.UserContext(), c.Params("billRef"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(pdf)
}

func (h *InventoryHandler) historyQuery(c *fiber.Ctx) (dto.MovementHistoryQuery, bool, error) {
	q := dto.MovementHistoryQuery{
		ProductID: strings.TrimSpace(c.Query("product_id")),
		Type:      strings.TrimSpace(c.Query("type")),
		PageRequest: dto.PageRequest{
			Limit:  c.QueryInt("limit", 0),
			Offset: c.QueryInt("offset", 0),
		},
	}
	if err := h.val.Struct(q); err != nil {
		return q, false, badRequest(c, "VALIDATION", err.Error())
	}
	return q, true, nil
}

func (h *InventoryHandler) list(c *fiber.Ctx, q dto.MovementHistoryQuery) error {
	out, err := h.audit.ListMovements(c.UserContext(), repository.MovementFilter{
		ProductID: q.ProductID,
		Type:      q.Type,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
