package inventory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// UnknownLabel sustituye nombres de producto o usuario que ya no se pueden resolver.
const UnknownLabel = "Unknown"

// AuditQuery reconstruye el historial legible de movimientos uniendo cada movimiento con su
// producto y usuario al momento de la lectura. Una referencia colgante no rompe el listado.
type AuditQuery struct {
	movRepo     repository.StockMovementRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	slips       WithdrawalSlipGenerator
}

// NewAuditQuery construye la consulta de auditoría. slips puede ser nil si no se generan PDFs.
func NewAuditQuery(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	slips WithdrawalSlipGenerator,
) *AuditQuery {
	return &AuditQuery{movRepo: movRepo, productRepo: productRepo, userRepo: userRepo, slips: slips}
}

// ListMovements lista movimientos (opcionalmente por producto y/o tipo), del más reciente al más antiguo.
func (q *AuditQuery) ListMovements(ctx context.Context, filter repository.MovementFilter) (*dto.MovementListResponse, error) {
	if filter.Type != "" && !entity.ValidMovementType(filter.Type) {
		return nil, fmt.Errorf("%w: type debe ser add o withdraw", domain.ErrInvalidInput)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: paginación inválida", domain.ErrInvalidInput)
	}
	movs, err := q.movRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	total, err := q.movRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("contar movimientos: %w", err)
	}
	slices.SortStableFunc(movs, func(a, b *entity.StockMovement) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	e := newEnricher(q.productRepo, q.userRepo)
	items := make([]dto.MovementResponse, 0, len(movs))
	for _, m := range movs {
		item, err := e.enrich(ctx, m)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return &dto.MovementListResponse{Items: items, Total: total}, nil
}

// GetWithdrawal devuelve el retiro identificado por su referencia de factura.
func (q *AuditQuery) GetWithdrawal(ctx context.Context, billRef string) (*dto.MovementResponse, error) {
	billRef = strings.TrimSpace(billRef)
	if billRef == "" {
		return nil, fmt.Errorf("%w: bill_ref es requerida", domain.ErrInvalidInput)
	}
	mov, err := q.movRepo.GetByBillRef(ctx, billRef)
	if err != nil {
		return nil, fmt.Errorf("obtener retiro: %w", err)
	}
	if mov == nil {
		return nil, domain.ErrNotFound
	}
	item, err := newEnricher(q.productRepo, q.userRepo).enrich(ctx, mov)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// WithdrawalSlip genera el comprobante PDF del retiro. Devuelve bytes y nombre de archivo.
func (q *AuditQuery) WithdrawalSlip(ctx context.Context, billRef string) ([]byte, string, error) {
	if q.slips == nil {
		return nil, "", fmt.Errorf("generador de comprobantes no configurado")
	}
	item, err := q.GetWithdrawal(ctx, billRef)
	if err != nil {
		return nil, "", err
	}
	pdf, err := q.slips.GenerateWithdrawalSlip(ctx, *item)
	if err != nil {
		return nil, "", fmt.Errorf("generar comprobante: %w", err)
	}
	return pdf, item.BillRef + ".pdf", nil
}

// enricher resuelve producto y usuario una sola vez por ID dentro de una consulta.
type enricher struct {
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	products    map[string]*entity.Product
	users       map[string]*entity.User
}

func newEnricher(productRepo repository.ProductRepository, userRepo repository.UserRepository) *enricher {
	return &enricher{
		productRepo: productRepo,
		userRepo:    userRepo,
		products:    make(map[string]*entity.Product),
		users:       make(map[string]*entity.User),
	}
}

func (e *enricher) enrich(ctx context.Context, m *entity.StockMovement) (dto.MovementResponse, error) {
	out := toMovementResponse(m)

	product, ok := e.products[m.ProductID]
	if !ok {
		p, err := e.productRepo.GetByID(ctx, m.ProductID)
		if err != nil {
			return out, fmt.Errorf("obtener producto %s: %w", m.ProductID, err)
		}
		product = p
		e.products[m.ProductID] = p
	}
	if product != nil {
		price := product.Price
		out.ProductName = product.Name
		out.ProductPrice = &price
	}

	user, ok := e.users[m.UserID]
	if !ok {
		u, err := e.userRepo.GetByID(ctx, m.UserID)
		if err != nil {
			return out, fmt.Errorf("obtener usuario %s: %w", m.UserID, err)
		}
		user = u
		e.users[m.UserID] = u
	}
	if user != nil {
		out.Username = user.Username
		out.UserDisplayName = user.DisplayName
	}
	return out, nil
}

// toMovementResponse convierte un movimiento sin enriquecer; los nombres quedan en UnknownLabel.
func toMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:              m.ID,
		Type:            m.Type,
		Quantity:        m.Quantity,
		Description:     m.Description,
		Location:        m.Location,
		BillRef:         m.BillRef,
		Total:           m.Total,
		ProductID:       m.ProductID,
		ProductName:     UnknownLabel,
		UserID:          m.UserID,
		Username:        UnknownLabel,
		UserDisplayName: UnknownLabel,
		CreatedAt:       m.CreatedAt,
	}
}
