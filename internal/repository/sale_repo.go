package repository

import (
	"context"
	"time"

	"go-apotek-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaleTx is the set of writes allowed inside one sale commit.
type SaleTx interface {
	// LockProducts reads the given products once, row-locked until commit.
	// Missing (or soft-deleted) ids are simply absent from the map.
	LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error)
	InsertSale(ctx context.Context, sale *model.Sale) error
	// DecrementStock returns ErrStockConflict when the row no longer holds qty units.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int, updatedBy string) error
}

type SaleRepository interface {
	WithTx(ctx context.Context, fn func(tx SaleTx) error) error
	FindAll(ctx context.Context, filter SaleFilter) ([]model.Sale, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	Summary(ctx context.Context, filter SaleFilter) (*SaleSummary, error)
}

// SaleFilter bounds listing and statistics by creation time (inclusive).
type SaleFilter struct {
	Start *time.Time
	End   *time.Time
}

// SaleSummary untuk statistik penjualan
type SaleSummary struct {
	TotalTransactions int64           `json:"total_transactions"`
	TotalSales        decimal.Decimal `json:"total_sales"`
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

// WithTx runs fn in one database transaction; any error rolls everything back.
func (r *saleRepo) WithTx(ctx context.Context, fn func(tx SaleTx) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&saleTx{db: tx})
	})
	return translate(err)
}

func (r *saleRepo) FindAll(ctx context.Context, filter SaleFilter) ([]model.Sale, error) {
	var sales []model.Sale
	q := r.db.WithContext(ctx).Preload("Items.Product").Preload("Cashier")
	err := applySaleFilter(q, filter).Order("created_at DESC").Find(&sales).Error
	return sales, translate(err)
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).Preload("Items.Product").Preload("Cashier").First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sale, nil
}

func (r *saleRepo) Summary(ctx context.Context, filter SaleFilter) (*SaleSummary, error) {
	var summary SaleSummary
	q := applySaleFilter(r.db.WithContext(ctx).Model(&model.Sale{}), filter)
	if err := q.Count(&summary.TotalTransactions).Error; err != nil {
		return nil, translate(err)
	}
	q = applySaleFilter(r.db.WithContext(ctx).Model(&model.Sale{}), filter)
	if err := q.Select("COALESCE(SUM(total_price), 0)").Scan(&summary.TotalSales).Error; err != nil {
		return nil, translate(err)
	}
	return &summary, nil
}

func applySaleFilter(q *gorm.DB, filter SaleFilter) *gorm.DB {
	if filter.Start != nil {
		q = q.Where("created_at >= ?", *filter.Start)
	}
	if filter.End != nil {
		q = q.Where("created_at <= ?", *filter.End)
	}
	return q
}

type saleTx struct {
	db *gorm.DB
}

func (t *saleTx) LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	var products []model.Product
	// Lock in primary-key order so two carts touching the same products cannot deadlock.
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&products).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make(map[uuid.UUID]model.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (t *saleTx) InsertSale(ctx context.Context, sale *model.Sale) error {
	return translate(t.db.WithContext(ctx).Omit("Cashier").Create(sale).Error)
}

func (t *saleTx) DecrementStock(ctx context.Context, id uuid.UUID, qty int, updatedBy string) error {
	res := t.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStockConflict
	}
	return nil
}
