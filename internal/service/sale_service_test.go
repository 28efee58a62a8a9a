package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go-apotek-pos/internal/events"
	"go-apotek-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saleFixture struct {
	store    *memoryStore
	svc      SaleService
	pub      *recordingPublisher
	category model.Category
	cashier  uuid.UUID
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()
	store := newMemoryStore()
	pub := &recordingPublisher{}
	return &saleFixture{
		store:    store,
		svc:      NewSaleService(memorySaleRepo{store}, nil, pub, nil, nil, nil),
		pub:      pub,
		category: store.addCategory("Obat Bebas"),
		cashier:  uuid.New(),
	}
}

func (f *saleFixture) request(lines ...SaleLine) CreateSaleRequest {
	return CreateSaleRequest{
		CashierID:     f.cashier,
		Items:         lines,
		PaymentMethod: model.PaymentCash,
	}
}

func TestCreateSaleCommitsAndDecrements(t *testing.T) {
	f := newSaleFixture(t)
	a := f.store.addProduct("Paracetamol", 5, 5000, f.category.ID)

	sale, err := f.svc.CreateSale(context.Background(), f.request(SaleLine{ProductID: a.ID, Quantity: 3}), testActor)
	require.NoError(t, err)

	assert.Equal(t, 2, f.store.product(a.ID).Stock)
	assert.True(t, decimal.NewFromInt(15000).Equal(sale.TotalPrice))
	require.Len(t, sale.Items, 1)
	assert.True(t, decimal.NewFromInt(15000).Equal(sale.Items[0].Subtotal))
	assert.True(t, decimal.NewFromInt(5000).Equal(sale.Items[0].Price))
	assert.Equal(t, f.cashier, sale.CashierID)
	assert.True(t, strings.HasPrefix(sale.TransactionNo, "TRX-"))
	assert.Equal(t, 1, f.store.saleCount())
	assert.Equal(t, []string{events.TopicSaleCommitted, events.TopicStockUpdated}, f.pub.topics())
}

func TestCreateSaleInsufficientStockLeavesStock(t *testing.T) {
	f := newSaleFixture(t)
	a := f.store.addProduct("Amoxicillin", 5, 5000, f.category.ID)

	_, err := f.svc.CreateSale(context.Background(), f.request(SaleLine{ProductID: a.ID, Quantity: 10}), testActor)
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, a.ID, stockErr.ProductID)
	assert.Equal(t, "Amoxicillin", stockErr.ProductName)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 10, stockErr.Requested)

	assert.Equal(t, 5, f.store.product(a.ID).Stock)
	assert.Zero(t, f.store.saleCount())
	assert.Empty(t, f.pub.topics())
}

func TestCreateSaleProductNotFound(t *testing.T) {
	f := newSaleFixture(t)
	missing := uuid.New()

	_, err := f.svc.CreateSale(context.Background(), f.request(SaleLine{ProductID: missing, Quantity: 1}), testActor)
	require.ErrorIs(t, err, ErrProductNotFound)

	var nf *ProductNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, missing, nf.ProductID)
}

func TestCreateSaleFailsOnFirstBadLine(t *testing.T) {
	f := newSaleFixture(t)
	low := f.store.addProduct("Vitamin C", 1, 1000, f.category.ID)
	missing := uuid.New()

	_, err := f.svc.CreateSale(context.Background(), f.request(
		SaleLine{ProductID: missing, Quantity: 1},
		SaleLine{ProductID: low.ID, Quantity: 5},
	), testActor)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = f.svc.CreateSale(context.Background(), f.request(
		SaleLine{ProductID: low.ID, Quantity: 5},
		SaleLine{ProductID: missing, Quantity: 1},
	), testActor)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCreateSaleRepeatedLinesUseCombinedQuantity(t *testing.T) {
	f := newSaleFixture(t)
	a := f.store.addProduct("Antasida", 5, 2000, f.category.ID)

	_, err := f.svc.CreateSale(context.Background(), f.request(
		SaleLine{ProductID: a.ID, Quantity: 3},
		SaleLine{ProductID: a.ID, Quantity: 3},
	), testActor)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, f.store.product(a.ID).Stock)

	sale, err := f.svc.CreateSale(context.Background(), f.request(
		SaleLine{ProductID: a.ID, Quantity: 2},
		SaleLine{ProductID: a.ID, Quantity: 3},
	), testActor)
	require.NoError(t, err)
	assert.Len(t, sale.Items, 2)
	assert.Zero(t, f.store.product(a.ID).Stock)
	assert.True(t, decimal.NewFromInt(10000).Equal(sale.TotalPrice))
}

func TestCreateSaleTotalIsSumOfSubtotals(t *testing.T) {
	f := newSaleFixture(t)
	a := f.store.addProduct("A", 10, 1250, f.category.ID)
	b := f.store.addProduct("B", 10, 3300, f.category.ID)

	sale, err := f.svc.CreateSale(context.Background(), f.request(
		SaleLine{ProductID: a.ID, Quantity: 3},
		SaleLine{ProductID: b.ID, Quantity: 2},
	), testActor)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, it := range sale.Items {
		assert.True(t, it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Equal(it.Subtotal))
		sum = sum.Add(it.Subtotal)
	}
	assert.True(t, sum.Equal(sale.TotalPrice))
	assert.True(t, decimal.NewFromInt(10350).Equal(sale.TotalPrice))
}

func TestCreateSaleConflictRollsBackEverything(t *testing.T) {
	f := newSaleFixture(t)
	a := f.store.addProduct("A", 5, 1000, f.category.ID)
	b := f.store.addProduct("B", 5, 1000, f.category.ID)
	f.store.conflictOn[b.ID] = true

	_, err := f.svc.CreateSale(context.Background(), f.request(
		SaleLine{ProductID: a.ID, Quantity: 1},
		SaleLine{ProductID: b.ID, Quantity: 1},
	), testActor)
	require.ErrorIs(t, err, ErrCommitConflict)
	assert.NotErrorIs(t, err, ErrInsufficientStock)

	assert.Equal(t, 5, f.store.product(a.ID).Stock)
	assert.Equal(t, 5, f.store.product(b.ID).Stock)
	assert.Zero(t, f.store.saleCount())
}

func TestCreateSaleTransactionNumberCollision(t *testing.T) {
	f := newSaleFixture(t)
	a := f.store.addProduct("A", 5, 1000, f.category.ID)

	fixed := func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	first := NewSaleService(memorySaleRepo{f.store}, NewTransactionNumbers(fixed), nil, nil, nil, nil)
	second := NewSaleService(memorySaleRepo{f.store}, NewTransactionNumbers(fixed), nil, nil, nil, nil)

	sale, err := first.CreateSale(context.Background(), f.request(SaleLine{ProductID: a.ID, Quantity: 1}), testActor)
	require.NoError(t, err)
	assert.Equal(t, "TRX-1700000000000", sale.TransactionNo)

	_, err = second.CreateSale(context.Background(), f.request(SaleLine{ProductID: a.ID, Quantity: 1}), testActor)
	require.ErrorIs(t, err, ErrCommitConflict)
	assert.Equal(t, 4, f.store.product(a.ID).Stock)
}

func TestCreateSaleRejectsMalformedRequest(t *testing.T) {
	f := newSaleFixture(t)
	a := f.store.addProduct("A", 5, 1000, f.category.ID)
	ctx := context.Background()

	_, err := f.svc.CreateSale(ctx, f.request(), testActor)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.svc.CreateSale(ctx, f.request(SaleLine{ProductID: a.ID, Quantity: 0}), testActor)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	req := f.request(SaleLine{ProductID: a.ID, Quantity: 1})
	req.PaymentMethod = "DEBIT"
	_, err = f.svc.CreateSale(ctx, req, testActor)
	assert.ErrorIs(t, err, ErrInvalidPayment)

	assert.Equal(t, 5, f.store.product(a.ID).Stock)
}

func TestSalePriceSnapshotSurvivesPriceChange(t *testing.T) {
	f := newSaleFixture(t)
	a := f.store.addProduct("A", 5, 5000, f.category.ID)
	ctx := context.Background()

	sale, err := f.svc.CreateSale(ctx, f.request(SaleLine{ProductID: a.ID, Quantity: 2}), testActor)
	require.NoError(t, err)

	edited := f.store.product(a.ID)
	edited.SellPrice = decimal.NewFromInt(9000)
	require.NoError(t, memoryProductRepo{f.store}.Update(ctx, &edited))

	stored, err := f.svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(stored.Items[0].Price))
	assert.True(t, decimal.NewFromInt(10000).Equal(stored.Items[0].Subtotal))
	assert.True(t, decimal.NewFromInt(10000).Equal(stored.TotalPrice))
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	f := newSaleFixture(t)
	a := f.store.addProduct("A", 10, 1000, f.category.ID)

	const buyers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		committed int
		rejected  int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateSale(context.Background(), f.request(SaleLine{ProductID: a.ID, Quantity: 1}), testActor)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				committed++
			case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrCommitConflict):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, committed)
	assert.Equal(t, buyers-10, rejected)
	assert.Zero(t, f.store.product(a.ID).Stock)
	assert.Equal(t, 10, f.store.saleCount())
}

func TestGetSaleNotFound(t *testing.T) {
	f := newSaleFixture(t)
	_, err := f.svc.GetSale(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionNumbersAreMonotonic(t *testing.T) {
	at := time.UnixMilli(1_000)
	g := NewTransactionNumbers(func() time.Time { return at })

	assert.Equal(t, "TRX-1000", g.Next())
	assert.Equal(t, "TRX-1001", g.Next())
	at = time.UnixMilli(999)
	assert.Equal(t, "TRX-1002", g.Next())
	at = time.UnixMilli(5_000)
	assert.Equal(t, "TRX-5000", g.Next())
}
