package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go-apotek-pos/internal/cache"
	"go-apotek-pos/internal/events"
	"go-apotek-pos/internal/importer"
	"go-apotek-pos/internal/metrics"
	"go-apotek-pos/internal/model"
	"go-apotek-pos/internal/repository"
)

// ImportFailure pairs a rejected row with the reason. Index is the row's
// zero-based position in the submitted batch.
type ImportFailure struct {
	Index int          `json:"index"`
	Row   importer.Row `json:"row"`
	Error string       `json:"error"`
	Err   error        `json:"-"`
}

// ImportResult partitions a batch. len(Success)+len(Failed) always equals
// the number of submitted rows, and both keep submission order.
type ImportResult struct {
	Success []model.Product `json:"success"`
	Failed  []ImportFailure `json:"failed"`
}

type ImportService interface {
	BulkImport(ctx context.Context, rows []importer.Row, actor events.Actor) (*ImportResult, error)
}

type importService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	suppliers  repository.SupplierRepository
	publisher  events.Publisher
	reports    *cache.ReportCache
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewImportService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	suppliers repository.SupplierRepository,
	publisher events.Publisher,
	reports *cache.ReportCache,
	m *metrics.Metrics,
	log *slog.Logger,
) ImportService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &importService{
		products:   products,
		categories: categories,
		suppliers:  suppliers,
		publisher:  publisher,
		reports:    reports,
		metrics:    m,
		log:        log,
	}
}

// BulkImport creates one product per row. Rows are independent: a failing
// row is recorded and the batch moves on, and earlier successes stay. The
// only error returned is context cancellation, together with the partial result.
func (s *importService) BulkImport(ctx context.Context, rows []importer.Row, actor events.Actor) (*ImportResult, error) {
	result := &ImportResult{
		Success: make([]model.Product, 0, len(rows)),
		Failed:  make([]ImportFailure, 0),
	}
	resolver := NewIdentityResolver(s.categories, s.suppliers, NewNameCache(), actor.ID, s.log)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(rows); j++ {
				result.Failed = append(result.Failed, ImportFailure{Index: j, Row: rows[j], Error: err.Error(), Err: err})
			}
			s.finish(context.WithoutCancel(ctx), result, actor)
			return result, err
		}

		product, err := s.importRow(ctx, resolver, row, actor.ID)
		if err != nil {
			s.log.Debug("import row rejected", "index", i, "err", err)
			result.Failed = append(result.Failed, ImportFailure{Index: i, Row: row, Error: err.Error(), Err: err})
			continue
		}
		result.Success = append(result.Success, *product)
	}

	s.finish(context.WithoutCancel(ctx), result, actor)
	return result, nil
}

func (s *importService) importRow(ctx context.Context, resolver *IdentityResolver, row importer.Row, actor string) (*model.Product, error) {
	product, err := buildProduct(ctx, resolver, importer.Normalize(row), actor)
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, storeError(err)
	}
	return product, nil
}

// finish runs on a context detached from the request: rows already created
// must still reach the cache and the event stream.
func (s *importService) finish(ctx context.Context, result *ImportResult, actor events.Actor) {
	s.metrics.ImportRows(len(result.Success), len(result.Failed))
	s.log.Info("bulk import finished", "success", len(result.Success), "failed", len(result.Failed), "actor", actor.ID)

	if len(result.Success) == 0 {
		return
	}
	if err := s.reports.Invalidate(ctx); err != nil {
		s.log.Warn("report cache invalidate failed", "err", err)
	}
	s.publisher.Publish(ctx, events.TopicImportCompleted, events.Event{
		Type:   "stock_update",
		Action: "products_imported",
		Data: map[string]int{
			"success": len(result.Success),
			"failed":  len(result.Failed),
		},
		Actor:      &actor,
		Message:    fmt.Sprintf("%s imported %d products", actor.Name, len(result.Success)),
		OccurredAt: time.Now(),
	})
}
