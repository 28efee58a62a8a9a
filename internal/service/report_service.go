package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go-apotek-pos/internal/cache"
	"go-apotek-pos/internal/metrics"
	"go-apotek-pos/internal/model"
	"go-apotek-pos/internal/repository"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// CatalogStatistics is the catalog half of the dashboard.
type CatalogStatistics struct {
	TotalProducts int `json:"total_products"`
	LowStockCount int `json:"low_stock_count"`
	ExpiringCount int `json:"expiring_count"`
}

// DashboardStats combines catalog and sales figures.
type DashboardStats struct {
	Catalog CatalogStatistics      `json:"catalog"`
	Sales   repository.SaleSummary `json:"sales"`
}

type ReportService interface {
	LowStock(ctx context.Context, threshold int) ([]model.Product, error)
	Expiring(ctx context.Context, months int) ([]model.Product, error)
	CatalogStatistics(ctx context.Context) (*CatalogStatistics, error)
	SalesStatistics(ctx context.Context, filter repository.SaleFilter) (*repository.SaleSummary, error)
	Dashboard(ctx context.Context) (*DashboardStats, error)
}

type reportService struct {
	products  repository.ProductRepository
	sales     repository.SaleRepository
	cache     *cache.ReportCache
	metrics   *metrics.Metrics
	threshold int
	months    int
	now       func() time.Time
	group     singleflight.Group
	log       *slog.Logger
}

// NewReportService uses threshold and months for statistics; the list
// endpoints take their own values. A nil cache reads through every time.
func NewReportService(
	products repository.ProductRepository,
	sales repository.SaleRepository,
	reportCache *cache.ReportCache,
	m *metrics.Metrics,
	threshold, months int,
	now func() time.Time,
	log *slog.Logger,
) ReportService {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	if months <= 0 {
		months = DefaultExpiryMonths
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &reportService{
		products:  products,
		sales:     sales,
		cache:     reportCache,
		metrics:   m,
		threshold: threshold,
		months:    months,
		now:       now,
		log:       log,
	}
}

func (s *reportService) LowStock(ctx context.Context, threshold int) ([]model.Product, error) {
	key := fmt.Sprintf("low-stock:%d", threshold)
	return s.cachedList(ctx, key, func(active []model.Product) []model.Product {
		return LowStock(active, threshold)
	})
}

func (s *reportService) Expiring(ctx context.Context, months int) ([]model.Product, error) {
	now := s.now()
	// keyed per day so a cached list never outlives its window start by much
	key := fmt.Sprintf("expiring:%d:%s", months, now.Format("2006-01-02"))
	return s.cachedList(ctx, key, func(active []model.Product) []model.Product {
		return Expiring(active, now, months)
	})
}

func (s *reportService) CatalogStatistics(ctx context.Context) (*CatalogStatistics, error) {
	active, err := s.activeProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &CatalogStatistics{
		TotalProducts: len(active),
		LowStockCount: len(LowStock(active, s.threshold)),
		ExpiringCount: len(Expiring(active, s.now(), s.months)),
	}, nil
}

func (s *reportService) SalesStatistics(ctx context.Context, filter repository.SaleFilter) (*repository.SaleSummary, error) {
	return s.sales.Summary(ctx, filter)
}

func (s *reportService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var (
		catalog *CatalogStatistics
		sales   *repository.SaleSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = s.CatalogStatistics(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		sales, err = s.SalesStatistics(gctx, repository.SaleFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &DashboardStats{Catalog: *catalog, Sales: *sales}, nil
}

func (s *reportService) cachedList(ctx context.Context, key string, eval func([]model.Product) []model.Product) ([]model.Product, error) {
	var cached []model.Product
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("report cache read failed", "key", key, "err", err)
	}
	if found {
		s.metrics.ReportCache(true)
		return cached, nil
	}
	if s.cache != nil {
		s.metrics.ReportCache(false)
	}

	active, err := s.activeProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := eval(active)
	if err := s.cache.Set(ctx, key, out); err != nil {
		s.log.Warn("report cache write failed", "key", key, "err", err)
	}
	return out, nil
}

// activeProducts collapses concurrent snapshot reads into one query. The
// shared read ignores the first caller's cancellation so waiters are not
// failed by a client that went away.
func (s *reportService) activeProducts(ctx context.Context) ([]model.Product, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do("active-products", func() (any, error) {
		return s.products.FindActive(shared)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Product), nil
}
