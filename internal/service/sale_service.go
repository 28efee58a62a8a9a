package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go-apotek-pos/internal/cache"
	"go-apotek-pos/internal/events"
	"go-apotek-pos/internal/metrics"
	"go-apotek-pos/internal/model"
	"go-apotek-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleState is where a sale ended up. Committed is the only state that persists anything.
type SaleState string

const (
	SaleValidating SaleState = "validating"
	SalePricing    SaleState = "pricing"
	SaleCommitting SaleState = "committing"
	SaleCommitted  SaleState = "committed"
	SaleRejected   SaleState = "rejected"
	SaleAborted    SaleState = "aborted"
)

type SaleLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

type CreateSaleRequest struct {
	CashierID     uuid.UUID           `json:"-"`
	Items         []SaleLine          `json:"items" validate:"required,min=1,dive"`
	PaymentMethod model.PaymentMethod `json:"payment_method" validate:"required,payment_method"`
	Notes         *string             `json:"notes,omitempty"`
}

type SaleService interface {
	CreateSale(ctx context.Context, req CreateSaleRequest, actor events.Actor) (*model.Sale, error)
	GetAllSales(ctx context.Context, filter repository.SaleFilter) ([]model.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error)
}

type saleService struct {
	sales     repository.SaleRepository
	numbers   *TransactionNumbers
	publisher events.Publisher
	reports   *cache.ReportCache
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewSaleService(
	sales repository.SaleRepository,
	numbers *TransactionNumbers,
	publisher events.Publisher,
	reports *cache.ReportCache,
	m *metrics.Metrics,
	log *slog.Logger,
) SaleService {
	if numbers == nil {
		numbers = NewTransactionNumbers(nil)
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &saleService{
		sales:     sales,
		numbers:   numbers,
		publisher: publisher,
		reports:   reports,
		metrics:   m,
		log:       log,
	}
}

// CreateSale validates, prices and commits the cart in one transaction.
// Lines are checked in cart order and the first bad line rejects the sale.
// Repeated lines for one product are checked against their combined quantity.
func (s *saleService) CreateSale(ctx context.Context, req CreateSaleRequest, actor events.Actor) (*model.Sale, error) {
	if err := checkRequest(req); err != nil {
		s.metrics.SaleRejected("invalid_request")
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, line := range req.Items {
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}

	sale := &model.Sale{
		TransactionNo: s.numbers.Next(),
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		CashierID:     req.CashierID,
	}
	sale.CreatedBy, sale.UpdatedBy = actor.ID, actor.ID

	state := SaleValidating
	err := s.sales.WithTx(ctx, func(tx repository.SaleTx) error {
		ledger, err := openLedger(ctx, tx, ids, actor.ID)
		if err != nil {
			return err
		}

		demand := make(map[uuid.UUID]int, len(ids))
		for _, line := range req.Items {
			demand[line.ProductID] += line.Quantity
			if err := ledger.CheckAvailable(line.ProductID, demand[line.ProductID]); err != nil {
				return err
			}
		}

		state = SalePricing
		items := make([]model.SaleItem, 0, len(req.Items))
		for _, line := range req.Items {
			p, _ := ledger.Product(line.ProductID)
			items = append(items, model.SaleItem{
				ProductID: p.ID,
				Quantity:  line.Quantity,
				Price:     p.SellPrice,
				Subtotal:  p.SellPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
			})
		}
		sale.Items = items
		sale.TotalPrice = model.TotalOf(items)

		state = SaleCommitting
		if err := tx.InsertSale(ctx, sale); err != nil {
			return err
		}
		for _, line := range req.Items {
			if err := ledger.Decrement(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		for i := range sale.Items {
			p, _ := ledger.Product(sale.Items[i].ProductID)
			sale.Items[i].Product = &p
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(state, err)
	}

	s.committed(ctx, sale, actor)
	return sale, nil
}

func checkRequest(req CreateSaleRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyCart
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	if !req.PaymentMethod.Valid() {
		return ErrInvalidPayment
	}
	return nil
}

// fail classifies a failed transaction. Domain violations pass through
// unchanged; store conflicts become the retriable ErrCommitConflict.
func (s *saleService) fail(state SaleState, err error) error {
	switch {
	case errors.Is(err, ErrProductNotFound):
		s.metrics.SaleRejected("product_not_found")
		s.log.Info("sale rejected", "state", SaleRejected, "at", state, "err", err)
		return err
	case errors.Is(err, ErrInsufficientStock):
		s.metrics.SaleRejected("insufficient_stock")
		s.log.Info("sale rejected", "state", SaleRejected, "at", state, "err", err)
		return err
	case isConflict(err):
		s.metrics.SaleRejected("commit_conflict")
		s.log.Warn("sale commit conflict", "state", SaleAborted, "at", state, "err", err)
		return fmt.Errorf("%w: %v", ErrCommitConflict, err)
	}
	s.metrics.SaleRejected("error")
	s.log.Error("sale aborted", "state", SaleAborted, "at", state, "err", err)
	return fmt.Errorf("create sale: %w", err)
}

func isConflict(err error) bool {
	return errors.Is(err, repository.ErrStockConflict) ||
		errors.Is(err, repository.ErrSerialization) ||
		errors.Is(err, repository.ErrDuplicate)
}

func (s *saleService) committed(ctx context.Context, sale *model.Sale, actor events.Actor) {
	amount, _ := sale.TotalPrice.Float64()
	s.metrics.SaleCommitted(amount)
	s.log.Info("sale committed",
		"state", SaleCommitted,
		"transaction_no", sale.TransactionNo,
		"total", sale.TotalPrice.String(),
		"items", len(sale.Items),
		"cashier", sale.CashierID)

	if err := s.reports.Invalidate(ctx); err != nil {
		s.log.Warn("report cache invalidate failed", "err", err)
	}

	now := time.Now()
	s.publisher.Publish(ctx, events.TopicSaleCommitted, events.Event{
		Type:   "sale",
		Action: "sale_committed",
		Data: map[string]any{
			"id":             sale.ID,
			"transaction_no": sale.TransactionNo,
			"total_price":    sale.TotalPrice,
			"payment_method": sale.PaymentMethod,
		},
		Actor:      &actor,
		Message:    fmt.Sprintf("%s recorded sale %s", actor.Name, sale.TransactionNo),
		OccurredAt: now,
	})

	stock := make(map[uuid.UUID]int, len(sale.Items))
	names := make(map[uuid.UUID]string, len(sale.Items))
	order := make([]uuid.UUID, 0, len(sale.Items))
	for _, it := range sale.Items {
		if it.Product == nil {
			continue
		}
		if _, ok := stock[it.ProductID]; !ok {
			order = append(order, it.ProductID)
		}
		stock[it.ProductID] = it.Product.Stock
		names[it.ProductID] = it.Product.Name
	}
	for _, id := range order {
		s.publisher.Publish(ctx, events.TopicStockUpdated, events.Event{
			Type:   "stock_update",
			Action: "stock_decremented",
			Data: map[string]any{
				"id":        id,
				"name":      names[id],
				"new_stock": stock[id],
			},
			Actor:      &actor,
			OccurredAt: now,
		})
	}
}

func (s *saleService) GetAllSales(ctx context.Context, filter repository.SaleFilter) ([]model.Sale, error) {
	return s.sales.FindAll(ctx, filter)
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return sale, nil
}
