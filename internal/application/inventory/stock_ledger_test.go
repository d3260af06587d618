package inventory_test

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
)

var billRefPattern = regexp.MustCompile(`^BILL-\d{17}-[0-9A-F]{12}$`)

type recordingPublisher struct {
	mu     sync.Mutex
	events []inventory.MovementEvent
}

func (p *recordingPublisher) PublishMovement(_ context.Context, e inventory.MovementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	store     *sqlite.Store
	ledger    *inventory.StockLedger
	audit     *inventory.AuditQuery
	publisher *recordingPublisher
}

func newFixture(t *testing.T, billRefs domaininv.BillRefGenerator) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "ledger.db"), 5*time.Second, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	pub := &recordingPublisher{}
	ledger := inventory.NewStockLedger(store.TxRunner(), store.UserRepository(), billRefs, pub,
		inventory.LedgerConfig{MaxRetries: 3, RetryBackoff: time.Millisecond}, zerolog.Nop())
	audit := inventory.NewAuditQuery(store.StockMovementRepository(), store.ProductRepository(), store.UserRepository(), nil)
	return &fixture{store: store, ledger: ledger, audit: audit, publisher: pub}
}

func (f *fixture) seedUser(t *testing.T, id, username, displayName string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.store.UserRepository().Create(context.Background(), &entity.User{
		ID: id, Username: username, DisplayName: displayName, PasswordHash: "x", Role: entity.RoleBodeguero,
		CreatedAt: now, UpdatedAt: now,
	}))
}

func (f *fixture) seedProduct(t *testing.T, id string, price string, stock int64) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.store.ProductRepository().Create(context.Background(), &entity.Product{
		ID: id, Name: "Producto " + id, Price: decimal.RequireFromString(price), Stock: stock,
		CreatedAt: now, UpdatedAt: now,
	}))
}

func (f *fixture) stock(t *testing.T, id string) int64 {
	t.Helper()
	p, err := f.store.ProductRepository().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

func (f *fixture) movements(t *testing.T, filter repository.MovementFilter) []*entity.StockMovement {
	t.Helper()
	list, err := f.store.StockMovementRepository().List(context.Background(), filter)
	require.NoError(t, err)
	return list
}

func TestStockLedger_ExampleScenario(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana", "Ana Pérez")
	f.seedProduct(t, "p1", "100", 10)

	added, err := f.ledger.AddStock(ctx, inventory.AddStockInput{ProductID: "p1", UserID: "u1", Quantity: 5, Description: "reposición"})
	require.NoError(t, err)
	assert.Equal(t, int64(15), added.Product.Stock)
	assert.Equal(t, entity.MovementTypeAdd, added.Movement.Type)
	assert.Nil(t, added.Movement.Total)
	assert.Empty(t, added.Movement.BillRef)

	_, err = f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: 20, Location: "Bodega 1"})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(15), f.stock(t, "p1"))

	w, err := f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: 15, Location: "Bodega 1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.Product.Stock)
	require.NotNil(t, w.Movement.Total)
	assert.True(t, decimal.NewFromInt(1500).Equal(*w.Movement.Total))
	assert.Regexp(t, billRefPattern, w.Movement.BillRef)
	assert.Equal(t, "Ana Pérez", w.User.DisplayName)

	assert.Equal(t, int64(0), f.stock(t, "p1"))
	movs := f.movements(t, repository.MovementFilter{ProductID: "p1"})
	require.Len(t, movs, 2)
	assert.Equal(t, entity.MovementTypeWithdraw, movs[0].Type)
	assert.Equal(t, w.Movement.BillRef, movs[0].BillRef)

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, inventory.EventStockAdded, f.publisher.events[0].Type)
	assert.Equal(t, inventory.EventStockWithdrawn, f.publisher.events[1].Type)
	assert.Equal(t, int64(0), f.publisher.events[1].StockAfter)
}

func TestStockLedger_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana", "Ana")
	f.seedProduct(t, "p1", "10", 5)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"cantidad cero", func() error {
			_, err := f.ledger.AddStock(ctx, inventory.AddStockInput{ProductID: "p1", UserID: "u1", Quantity: 0})
			return err
		}, domain.ErrInvalidInput},
		{"cantidad negativa", func() error {
			_, err := f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: -1, Location: "x"})
			return err
		}, domain.ErrInvalidInput},
		{"sin ubicación", func() error {
			_, err := f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: 1, Location: "  "})
			return err
		}, domain.ErrInvalidInput},
		{"sin producto", func() error {
			_, err := f.ledger.AddStock(ctx, inventory.AddStockInput{UserID: "u1", Quantity: 1})
			return err
		}, domain.ErrInvalidInput},
		{"producto inexistente", func() error {
			_, err := f.ledger.AddStock(ctx, inventory.AddStockInput{ProductID: "nope", UserID: "u1", Quantity: 1})
			return err
		}, domain.ErrNotFound},
		{"usuario inexistente", func() error {
			_, err := f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "nadie", Quantity: 1, Location: "x"})
			return err
		}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.want)
		})
	}
	assert.Equal(t, int64(5), f.stock(t, "p1"))
	assert.Empty(t, f.movements(t, repository.MovementFilter{}))
	assert.Empty(t, f.publisher.events)
}

func TestStockLedger_ConcurrentWithdrawalsNeverOversell(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana", "Ana")
	f.seedProduct(t, "p1", "2.50", 10)

	const workers = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, insufficient int
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: 1, Location: "Caja"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficient++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, workers-10, insufficient)
	assert.Equal(t, int64(0), f.stock(t, "p1"))

	movs := f.movements(t, repository.MovementFilter{ProductID: "p1", Type: entity.MovementTypeWithdraw})
	require.Len(t, movs, 10)
	refs := map[string]bool{}
	for _, m := range movs {
		refs[m.BillRef] = true
	}
	assert.Len(t, refs, 10)
}

func TestStockLedger_ConcurrentMixedQuantities(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana", "Ana")
	const initial = 10
	f.seedProduct(t, "p1", "4", initial)

	quantities := []int64{3, 4, 5, 2, 7, 1, 6}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var withdrawn int64
	for _, q := range quantities {
		wg.Add(1)
		go func(q int64) {
			defer wg.Done()
			_, err := f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: q, Location: "Caja"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				withdrawn += q
			case errors.Is(err, domain.ErrInsufficientStock):
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}(q)
	}
	wg.Wait()

	assert.LessOrEqual(t, withdrawn, int64(initial))
	assert.Equal(t, initial-withdrawn, f.stock(t, "p1"))

	var recorded int64
	for _, m := range f.movements(t, repository.MovementFilter{ProductID: "p1", Type: entity.MovementTypeWithdraw}) {
		recorded += m.Quantity
		require.NotNil(t, m.Total)
		assert.True(t, decimal.NewFromInt(4*m.Quantity).Equal(*m.Total))
	}
	assert.Equal(t, withdrawn, recorded)
}

func TestStockLedger_TimestampsFollowApplyOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana", "Ana")
	f.seedProduct(t, "p1", "1", 0)

	var mu sync.Mutex
	tick := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Millisecond)
		return tick
	}
	pub := &recordingPublisher{}
	ledger := inventory.NewStockLedger(f.store.TxRunner(), f.store.UserRepository(), nil, pub,
		inventory.LedgerConfig{MaxRetries: 3, RetryBackoff: time.Millisecond, Clock: clock}, zerolog.Nop())

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.AddStock(ctx, inventory.AddStockInput{ProductID: "p1", UserID: "u1", Quantity: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Len(t, pub.events, workers)

	// StockAfter da el orden en que se aplicó cada entrada.
	byStock := make(map[int64]time.Time, workers)
	for _, e := range pub.events {
		byStock[e.StockAfter] = e.OccurredAt
	}
	require.Len(t, byStock, workers)
	for n := int64(2); n <= workers; n++ {
		assert.True(t, byStock[n].After(byStock[n-1]), "entrada %d con fecha anterior a la %d", n, n-1)
	}
}

func TestStockLedger_SuppliedDuplicateBillRef(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana", "Ana")
	f.seedProduct(t, "p1", "10", 10)

	_, err := f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: 2, Location: "x", BillRef: "FAC-001"})
	require.NoError(t, err)

	_, err = f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: 3, Location: "x", BillRef: "FAC-001"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.NotErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, int64(8), f.stock(t, "p1"))
	assert.Len(t, f.movements(t, repository.MovementFilter{}), 1)
}

func TestStockLedger_GeneratedBillRefCollisionIsRetried(t *testing.T) {
	refs := []string{"BILL-A", "BILL-A", "BILL-B"}
	var mu sync.Mutex
	gen := domaininv.BillRefFunc(func(time.Time) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		ref := refs[0]
		refs = refs[1:]
		return ref, nil
	})
	f := newFixture(t, gen)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana", "Ana")
	f.seedProduct(t, "p1", "1", 10)

	first, err := f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: 1, Location: "x"})
	require.NoError(t, err)
	assert.Equal(t, "BILL-A", first.Movement.BillRef)

	second, err := f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: 1, Location: "x"})
	require.NoError(t, err)
	assert.Equal(t, "BILL-B", second.Movement.BillRef)
	assert.Equal(t, int64(8), f.stock(t, "p1"))
}

func TestStockLedger_PriceChangeKeepsStoredTotal(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana", "Ana")
	f.seedProduct(t, "p1", "100", 10)

	w, err := f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: 3, Location: "x"})
	require.NoError(t, err)

	p, err := f.store.ProductRepository().GetByID(ctx, "p1")
	require.NoError(t, err)
	p.Price = decimal.NewFromInt(999)
	require.NoError(t, f.store.ProductRepository().Update(ctx, p))

	got, err := f.audit.GetWithdrawal(ctx, w.Movement.BillRef)
	require.NoError(t, err)
	require.NotNil(t, got.Total)
	assert.True(t, decimal.NewFromInt(300).Equal(*got.Total))
	require.NotNil(t, got.ProductPrice)
	assert.True(t, decimal.NewFromInt(999).Equal(*got.ProductPrice))
}

// conflictRunner falla con ErrConflict las primeras n veces.
type conflictRunner struct {
	inner inventory.TxRunner
	fails int
	calls int
}

func (r *conflictRunner) Run(ctx context.Context, fn func(repository.StockMovementRepository, repository.ProductRepository) error) error {
	r.calls++
	if r.calls <= r.fails {
		return domain.ErrConflict
	}
	return r.inner.Run(ctx, fn)
}

func TestStockLedger_RetriesConflicts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedUser(t, "u1", "ana", "Ana")
	f.seedProduct(t, "p1", "1", 0)

	runner := &conflictRunner{inner: f.store.TxRunner(), fails: 2}
	ledger := inventory.NewStockLedger(runner, f.store.UserRepository(), nil, nil,
		inventory.LedgerConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}, zerolog.Nop())

	_, err := ledger.AddStock(ctx, inventory.AddStockInput{ProductID: "p1", UserID: "u1", Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, int64(4), f.stock(t, "p1"))

	runner = &conflictRunner{inner: f.store.TxRunner(), fails: 10}
	ledger = inventory.NewStockLedger(runner, f.store.UserRepository(), nil, nil,
		inventory.LedgerConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}, zerolog.Nop())
	_, err = ledger.AddStock(ctx, inventory.AddStockInput{ProductID: "p1", UserID: "u1", Quantity: 4})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, int64(4), f.stock(t, "p1"))
}

// failingRunner devuelve siempre err sin abrir transacción.
type failingRunner struct {
	err   error
	calls int
}

func (r *failingRunner) Run(context.Context, func(repository.StockMovementRepository, repository.ProductRepository) error) error {
	r.calls++
	return r.err
}

func TestStockLedger_OtherErrorsAreNotRetried(t *testing.T) {
	f := newFixture(t, nil)
	f.seedUser(t, "u1", "ana", "Ana")

	boom := errors.New("disco lleno")
	runner := &failingRunner{err: boom}
	ledger := inventory.NewStockLedger(runner, f.store.UserRepository(), nil, nil,
		inventory.LedgerConfig{MaxRetries: 5, RetryBackoff: time.Millisecond}, zerolog.Nop())

	_, err := ledger.WithdrawStock(context.Background(), inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: 1, Location: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, runner.calls)
}

func TestStockLedger_CanceledContext(t *testing.T) {
	f := newFixture(t, nil)
	f.seedUser(t, "u1", "ana", "Ana")
	f.seedProduct(t, "p1", "1", 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.ledger.WithdrawStock(ctx, inventory.WithdrawStockInput{ProductID: "p1", UserID: "u1", Quantity: 1, Location: "x"})
	assert.Error(t, err)
	assert.Equal(t, int64(5), f.stock(t, "p1"))
}
