package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// LedgerConfig parámetros de reintento ante conflictos de concurrencia.
type LedgerConfig struct {
	MaxRetries   int           // reintentos adicionales tras el primer intento
	RetryBackoff time.Duration // espera inicial, crece exponencialmente por intento
	Clock        func() time.Time
}

// StockLedger es el único escritor de Product.Stock y el único creador de movimientos.
// Cada operación lee el producto con bloqueo de fila (GetForUpdate), valida, actualiza el stock
// y agrega el movimiento dentro de una sola transacción (TxRunner), por lo que dos retiros
// concurrentes del mismo producto se serializan.
type StockLedger struct {
	txRunner  TxRunner
	userRepo  repository.UserRepository
	billRefs  inventory.BillRefGenerator
	publisher MovementPublisher
	cfg       LedgerConfig
	log       zerolog.Logger
}

// NewStockLedger construye el libro de stock. publisher puede ser nil.
func NewStockLedger(
	txRunner TxRunner,
	userRepo repository.UserRepository,
	billRefs inventory.BillRefGenerator,
	publisher MovementPublisher,
	cfg LedgerConfig,
	log zerolog.Logger,
) *StockLedger {
	if billRefs == nil {
		billRefs = inventory.DefaultBillRefs
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &StockLedger{
		txRunner:  txRunner,
		userRepo:  userRepo,
		billRefs:  billRefs,
		publisher: publisher,
		cfg:       cfg,
		log:       log.With().Str("component", "stock_ledger").Logger(),
	}
}

// AddStockInput entrada de AddStock.
type AddStockInput struct {
	ProductID   string
	UserID      string
	Quantity    int64
	Description string
}

// WithdrawStockInput entrada de WithdrawStock. BillRef vacío = se genera uno.
type WithdrawStockInput struct {
	ProductID   string
	UserID      string
	Quantity    int64
	Description string
	Location    string
	BillRef     string
}

// StockChange resultado de una operación confirmada.
type StockChange struct {
	Product  *entity.Product
	Movement *entity.StockMovement
	User     *entity.User
}

// AddStock suma quantity al stock del producto y registra un movimiento "add".
func (l *StockLedger) AddStock(ctx context.Context, in AddStockInput) (*StockChange, error) {
	if err := requireIDs(in.ProductID, in.UserID); err != nil {
		return nil, err
	}
	if err := inventory.ValidateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	user, err := l.actor(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	var change *StockChange
	err = l.withRetry(ctx, func() error {
		return l.txRunner.Run(ctx, func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
			product, err := productRepo.GetForUpdate(ctx, in.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return domain.ErrProductNotFound
			}
			// Con la fila bloqueada: el orden de created_at sigue el orden de aplicación.
			now := l.cfg.Clock().UTC()
			mov, err := l.AddStockInTx(ctx, movRepo, productRepo, product, user.ID, in.Quantity, in.Description, now)
			if err != nil {
				return err
			}
			change = &StockChange{Product: product, Movement: mov, User: user}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	l.committed(ctx, change)
	return change, nil
}

// AddStockInTx aplica una entrada usando los repositorios de una transacción abierta por el caller.
// product debe haberse leído con bloqueo (o creado) dentro de esa misma transacción; se actualiza in-place.
func (l *StockLedger) AddStockInTx(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	product *entity.Product,
	userID string,
	quantity int64,
	description string,
	now time.Time,
) (*entity.StockMovement, error) {
	if err := inventory.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	if product.Stock > math.MaxInt64-quantity {
		return nil, fmt.Errorf("%w: el stock resultante excede el máximo", domain.ErrInvalidInput)
	}
	newStock := product.Stock + quantity
	if err := productRepo.UpdateStock(ctx, product.ID, newStock, now); err != nil {
		return nil, err
	}
	mov := &entity.StockMovement{
		ID:          uuid.New().String(),
		ProductID:   product.ID,
		UserID:      userID,
		Type:        entity.MovementTypeAdd,
		Quantity:    quantity,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
	}
	if err := movRepo.Create(ctx, mov); err != nil {
		return nil, err
	}
	product.Stock = newStock
	product.UpdatedAt = now
	return mov, nil
}

// WithdrawStock resta quantity del stock y registra un movimiento "withdraw" con ubicación,
// referencia de factura y total congelado (quantity * precio vigente).
// La verificación de stock suficiente y la resta ocurren bajo el mismo bloqueo de fila.
func (l *StockLedger) WithdrawStock(ctx context.Context, in WithdrawStockInput) (*StockChange, error) {
	if err := requireIDs(in.ProductID, in.UserID); err != nil {
		return nil, err
	}
	if err := inventory.ValidateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if err := inventory.ValidateLocation(in.Location); err != nil {
		return nil, err
	}
	user, err := l.actor(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	suppliedRef := strings.TrimSpace(in.BillRef)

	var change *StockChange
	err = l.withRetry(ctx, func() error {
		err := l.txRunner.Run(ctx, func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
			product, err := productRepo.GetForUpdate(ctx, in.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return domain.ErrProductNotFound
			}
			newStock, err := inventory.ApplyWithdraw(product.Stock, in.Quantity)
			if err != nil {
				return err
			}
			now := l.cfg.Clock().UTC()
			billRef := suppliedRef
			if billRef == "" {
				if billRef, err = l.billRefs.Next(now); err != nil {
					return err
				}
			}
			total := inventory.WithdrawalTotal(in.Quantity, product.Price)
			if err := productRepo.UpdateStock(ctx, product.ID, newStock, now); err != nil {
				return err
			}
			mov := &entity.StockMovement{
				ID:          uuid.New().String(),
				ProductID:   product.ID,
				UserID:      user.ID,
				Type:        entity.MovementTypeWithdraw,
				Quantity:    in.Quantity,
				Description: strings.TrimSpace(in.Description),
				Location:    strings.TrimSpace(in.Location),
				BillRef:     billRef,
				Total:       &total,
				CreatedAt:   now,
			}
			if err := movRepo.Create(ctx, mov); err != nil {
				return err
			}
			product.Stock = newStock
			product.UpdatedAt = now
			change = &StockChange{Product: product, Movement: mov, User: user}
			return nil
		})
		if errors.Is(err, domain.ErrDuplicate) {
			if suppliedRef != "" {
				return fmt.Errorf("%w: bill_ref %q ya fue usada", domain.ErrDuplicate, suppliedRef)
			}
			// Colisión de una referencia generada: se reintenta con otra.
			return fmt.Errorf("%w: bill_ref generada repetida", domain.ErrConflict)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	l.committed(ctx, change)
	return change, nil
}

// withRetry reintenta fn mientras falle con ErrConflict (serialización, deadlock, lock timeout),
// hasta MaxRetries veces con espera exponencial desde RetryBackoff. Otros errores cortan de inmediato.
func (l *StockLedger) withRetry(ctx context.Context, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = l.cfg.RetryBackoff
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(l.cfg.MaxRetries)), ctx)

	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		err := fn()
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		l.log.Warn().Err(err).Int("attempt", attempts).Dur("wait", wait).Msg("conflicto de concurrencia, reintentando")
	})
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("reintentos agotados (%d): %w", attempts, err)
	}
	return err
}

func (l *StockLedger) actor(ctx context.Context, userID string) (*entity.User, error) {
	user, err := l.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("obtener usuario: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// committed registra y publica un movimiento ya confirmado. Un fallo al publicar no
// revierte nada: el movimiento ya es durable.
func (l *StockLedger) committed(ctx context.Context, change *StockChange) {
	mov := change.Movement
	l.log.Info().
		Str("movement_id", mov.ID).
		Str("product_id", mov.ProductID).
		Str("user_id", mov.UserID).
		Str("type", mov.Type).
		Int64("quantity", mov.Quantity).
		Int64("stock", change.Product.Stock).
		Str("bill_ref", mov.BillRef).
		Msg("movimiento registrado")

	if l.publisher == nil {
		return
	}
	event := MovementEvent{
		Type:       EventStockAdded,
		MovementID: mov.ID,
		ProductID:  mov.ProductID,
		UserID:     mov.UserID,
		Quantity:   mov.Quantity,
		StockAfter: change.Product.Stock,
		Location:   mov.Location,
		BillRef:    mov.BillRef,
		Total:      mov.Total,
		OccurredAt: mov.CreatedAt,
	}
	if mov.IsWithdraw() {
		event.Type = EventStockWithdrawn
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := l.publisher.PublishMovement(pubCtx, event); err != nil {
		l.log.Warn().Err(err).Str("movement_id", mov.ID).Msg("no se pudo publicar el evento de movimiento")
	}
}

func requireIDs(productID, userID string) error {
	if strings.TrimSpace(productID) == "" {
		return fmt.Errorf("%w: product_id es requerido", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user_id es requerido", domain.ErrInvalidInput)
	}
	return nil
}
